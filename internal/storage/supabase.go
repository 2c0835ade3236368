package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/supabase-community/supabase-go"
)

const defaultSessionTable = "sessions"

// SupabaseStore persists records in a Supabase (PostgREST) table with
// a unique `key` column and a jsonb `record` column.
type SupabaseStore struct {
	client *supabase.Client
	table  string
}

type sessionRow struct {
	Key    string          `json:"key"`
	Record json.RawMessage `json:"record"`
}

func NewSupabase(url, apiKey, table string) (*SupabaseStore, error) {
	if table == "" {
		table = defaultSessionTable
	}
	client, err := supabase.NewClient(url, apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}
	return &SupabaseStore{client: client, table: table}, nil
}

func (s *SupabaseStore) Get(ctx context.Context, key string) ([]byte, error) {
	var rows []sessionRow
	_, err := s.client.From(s.table).
		Select("key,record", "", false).
		Eq("key", key).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("supabase get %q: %w", key, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].Record, nil
}

func (s *SupabaseStore) Set(ctx context.Context, key string, value []byte) error {
	row := sessionRow{Key: key, Record: json.RawMessage(value)}
	_, _, err := s.client.From(s.table).
		Upsert(row, "key", "", "").
		Execute()
	if err != nil {
		return fmt.Errorf("supabase set %q: %w", key, err)
	}
	return nil
}

func (s *SupabaseStore) Delete(ctx context.Context, key string) error {
	_, _, err := s.client.From(s.table).
		Delete("", "").
		Eq("key", key).
		Execute()
	if err != nil {
		return fmt.Errorf("supabase delete %q: %w", key, err)
	}
	return nil
}

func (s *SupabaseStore) Close() error { return nil }
