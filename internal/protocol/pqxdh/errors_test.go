package pqxdh_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"pqxdh/internal/protocol/pqxdh"
)

func TestErrorKinds(t *testing.T) {
	_, err := pqxdh.Decode(nil)
	wrapped := errors.WithMessage(err, "receive")

	require.ErrorIs(t, wrapped, pqxdh.ErrMalformedMessage)
	require.NotErrorIs(t, wrapped, pqxdh.ErrDerivationFailed)
	require.Equal(t, pqxdh.KindMalformedMessage, pqxdh.KindOf(wrapped))
	require.Equal(t, pqxdh.KindUnknown, pqxdh.KindOf(errors.New("other")))
	require.Contains(t, err.Error(), "malformed message")
}

func TestParsePolicy(t *testing.T) {
	p, err := pqxdh.ParsePolicy("Degrade")
	require.NoError(t, err)
	require.Equal(t, pqxdh.PolicyDegrade, p)

	p, err = pqxdh.ParsePolicy("")
	require.NoError(t, err)
	require.Equal(t, pqxdh.PolicyAbort, p)

	_, err = pqxdh.ParsePolicy("maybe")
	require.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	cfg := pqxdh.DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.OutputLength = 8
	require.Error(t, cfg.Validate())

	cfg = pqxdh.DefaultConfig()
	cfg.Version = 1
	require.Error(t, cfg.Validate())
}
