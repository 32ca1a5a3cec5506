package mcpserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	t.Run("missing ask service", func(t *testing.T) {
		server, err := NewServer(&Ports{Corpus: &mockCorpusService{}})
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingAskService)
	})

	t.Run("missing corpus service", func(t *testing.T) {
		_, err := NewServer(&Ports{Ask: &mockAskService{}})
		assert.ErrorIs(t, err, ErrMissingCorpusService)
	})

	t.Run("valid ports", func(t *testing.T) {
		server, err := NewServer(&Ports{Ask: &mockAskService{}, Corpus: &mockCorpusService{}})
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}
