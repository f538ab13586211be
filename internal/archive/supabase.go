package archive

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/supabase-community/supabase-go"

	"github.com/chadiek/interview-agent/internal/session"
)

// Config holds Supabase storage settings.
type Config struct {
	URL            string
	ServiceRoleKey string
	Bucket         string
}

// Store uploads finished interview transcripts to a storage bucket.
type Store struct {
	client *supabase.Client
	bucket string
}

func New(config Config) (*Store, error) {
	client, err := supabase.NewClient(config.URL, config.ServiceRoleKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	return &Store{client: client, bucket: config.Bucket}, nil
}

type transcriptDoc struct {
	SessionID  string         `json:"session_id"`
	Candidate  string         `json:"candidate"`
	FinishedAt time.Time      `json:"finished_at"`
	Turns      []session.Turn `json:"turns"`
}

// SaveTranscript uploads the transcript as a JSON document.
func (s *Store) SaveTranscript(sessionID string, candidate session.CandidateInfo, transcript []session.Turn) error {
	data, err := json.MarshalIndent(buildDocument(sessionID, candidate, transcript, time.Now().UTC()), "", "  ")
	if err != nil {
		return err
	}
	if _, err := s.client.Storage.UploadFile(s.bucket, objectKey(sessionID), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("upload transcript: %w", err)
	}
	return nil
}

func buildDocument(sessionID string, candidate session.CandidateInfo, transcript []session.Turn, finishedAt time.Time) transcriptDoc {
	return transcriptDoc{
		SessionID:  sessionID,
		Candidate:  candidate.Name,
		FinishedAt: finishedAt,
		Turns:      transcript,
	}
}

func objectKey(sessionID string) string {
	return fmt.Sprintf("transcripts/%s.json", sessionID)
}
