package health

import (
	"context"
	"errors"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/assert"
	"golang.org/x/exp/slog"
)

type fakePinger struct {
	err error
}

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestHandler_healthCheck(t *testing.T) {
	tests := []struct {
		name    string
		pinger  Pinger
		wantErr bool
	}{
		{
			name:   "healthy database returns OK",
			pinger: fakePinger{},
		},
		{
			name:   "nil pinger still reports OK",
			pinger: nil,
		},
		{
			name:    "unreachable database fails",
			pinger:  fakePinger{err: errors.New("connection refused")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHandler(tt.pinger, slog.Default(), huma.Middlewares{})

			output, err := handler.healthCheck(context.Background(), &Input{})

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, "OK", output.Body.Status)
		})
	}
}
