// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package history

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_AppendGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	planJSON := json.RawMessage(`{"plan_version":1,"ops":[],"constraints":{}}`)
	id, err := s.Append(ctx, Entry{
		Prompt:       "blink an LED",
		Plan:         planJSON,
		Success:      true,
		AffectedRefs: []string{"R1", "D1"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "blink an LED", got.Prompt)
	assert.JSONEq(t, string(planJSON), string(got.Plan))
	assert.True(t, got.Success)
	assert.Equal(t, []string{"R1", "D1"}, got.AffectedRefs)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestStore_GetMissing(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get(context.Background(), "00000000000000000000-nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ListNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ids := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		id, err := s.Append(ctx, Entry{
			Prompt: fmt.Sprintf("change %d", i),
			Plan:   json.RawMessage(`{"plan_version":1,"ops":[],"constraints":{}}`),
		})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	entries, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 5)
	assert.Equal(t, ids[4], entries[0].ID, "newest entry first")
	assert.Equal(t, ids[0], entries[4].ID)

	limited, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, ids[4], limited[0].ID)
	assert.Equal(t, ids[3], limited[1].ID)
}

func TestStore_ListEmpty(t *testing.T) {
	s := openTestStore(t)
	entries, err := s.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NotNil(t, entries)
}

func TestOpen_PersistentRequiresPath(t *testing.T) {
	_, err := Open(Config{})
	require.Error(t, err)
}

func TestStore_Persistence(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(DefaultConfig(dir))
	require.NoError(t, err)
	id, err := s.Append(ctx, Entry{Prompt: "persist me", Plan: json.RawMessage(`{}`)})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2, err := Open(DefaultConfig(dir))
	require.NoError(t, err)
	defer s2.Close()
	got, err := s2.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "persist me", got.Prompt)
}
