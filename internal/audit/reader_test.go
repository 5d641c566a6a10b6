package audit

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestDecodeMeta(t *testing.T) {
	id := uuid.New()

	require.Equal(t, map[string]any{"email": "a@example.com"}, decodeMeta(id, []byte(`{"email":"a@example.com"}`)))
	require.Empty(t, decodeMeta(id, nil))

	meta := decodeMeta(id, []byte(`{not json`))
	require.NotNil(t, meta)
	require.Empty(t, meta)
}

func TestWriter_NilDiscards(t *testing.T) {
	var w *Writer
	require.NoError(t, w.LogOrgCreated(context.Background(), uuid.New(), uuid.New(), "Acme"))
	require.NoError(t, NewWriter(nil).LogUserDeleted(context.Background(), uuid.New(), "a@example.com"))
}
