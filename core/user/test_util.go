package user

import (
	"github.com/trezcool/kazi/core"
)

type serviceMock struct {
	service
}

// NewServiceMock returns a Service whose async side effects run synchronously.
func NewServiceMock(repo Repository, mailSvc core.EmailService, conf *core.Config) Service {
	return &serviceMock{
		service: service{
			repo:    repo,
			mailSvc: mailSvc,
			conf:    conf,
		},
	}
}
