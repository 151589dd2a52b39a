// Package mailtest provides a mock mail.Sender for handler tests.
package mailtest

import (
	"context"

	"github.com/leafsii/leafsii-cms/internal/mail"
	"github.com/stretchr/testify/mock"
)

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, msg mail.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}
