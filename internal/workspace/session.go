// Package workspace holds the state of one minutes session and the handlers
// that move it between the upload and review stages.
//
// A Session is owned by a single goroutine (the UI loop). Network calls are
// split into Begin*/Finish* halves so the caller can run the request
// elsewhere and apply the result back on the owning goroutine; Generate and
// SubmitCritique run both halves inline.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/strrl/minutes-workspace/internal/minutesapi"
	"github.com/strrl/minutes-workspace/pkg/models"
)

// Service is the external minutes service.
type Service interface {
	GenerateMinutes(ctx context.Context, doc models.Document) (*minutesapi.Result, error)
	ProcessCritique(ctx context.Context, doc models.Document, critique string, current models.MinutesDocument) (*minutesapi.Result, error)
}

// Stage is derived from the session contents, never stored.
type Stage int

const (
	StageUpload Stage = iota
	StageReview
)

func (s Stage) String() string {
	switch s {
	case StageUpload:
		return "upload"
	case StageReview:
		return "review"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Notice is an acknowledgement shown to the user. It is not session state.
type Notice string

const (
	NoticeNone              Notice = ""
	NoticeSaved             Notice = "Actas guardadas"
	NoticeCritiqueProcessed Notice = "Crítica procesada con éxito"
)

// RefreshRequest asks the surrounding shell to reload whatever it derived
// from outside the session (the file picker listing, in the TUI).
type RefreshRequest struct{}

// State is a copy of the session contents.
type State struct {
	File            *models.Document
	Minutes         *models.MinutesDocument
	Draft           string
	Critiques       []string
	Generating      bool
	SendingCritique bool
	Error           *string
}

// GenerationRequest is the work BeginGeneration hands to the caller.
type GenerationRequest struct {
	ID       string
	Document models.Document
}

// CritiqueRequest is the work BeginCritique hands to the caller.
type CritiqueRequest struct {
	ID       string
	Document models.Document
	Critique string
	Article  models.MinutesDocument
}

// Session is the mutable session record.
type Session struct {
	service Service
	logger  zerolog.Logger

	file            *models.Document
	minutes         *models.MinutesDocument
	draft           string
	critiques       []string
	generating      bool
	sendingCritique bool
	errMsg          *string
}

// New creates an empty session in the upload stage.
func New(service Service, logger zerolog.Logger) *Session {
	return &Session{
		service: service,
		logger:  logger.With().Str("component", "workspace").Logger(),
	}
}

// Stage reports upload until minutes exist.
func (s *Session) Stage() Stage {
	if s.minutes != nil {
		return StageReview
	}
	return StageUpload
}

// State returns a deep copy of the session.
func (s *Session) State() State {
	st := State{
		Draft:           s.draft,
		Critiques:       append([]string(nil), s.critiques...),
		Generating:      s.generating,
		SendingCritique: s.sendingCritique,
	}
	if s.file != nil {
		f := *s.file
		f.Content = append([]byte(nil), s.file.Content...)
		st.File = &f
	}
	if s.minutes != nil {
		m := cloneMinutes(*s.minutes)
		st.Minutes = &m
	}
	if s.errMsg != nil {
		e := *s.errMsg
		st.Error = &e
	}
	return st
}

// ErrorMessage returns the banner text, empty when there is none.
func (s *Session) ErrorMessage() string {
	if s.errMsg == nil {
		return ""
	}
	return *s.errMsg
}

// Draft returns the current critique draft.
func (s *Session) Draft() string {
	return s.draft
}

// SelectFile reads the file at path and selects it. A file that cannot be
// read sets the error banner.
func (s *Session) SelectFile(path string) error {
	if s.minutes != nil {
		return ErrFileLocked
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return s.fail(msgUnreadableFile+filepath.Base(path), fmt.Errorf("reading %s: %w", path, err))
	}
	s.errMsg = nil
	return s.SelectDocument(models.Document{Name: filepath.Base(path), Content: content})
}

// SelectDocument selects an in-memory document. The file cannot change once
// minutes exist, since critiques re-send it.
func (s *Session) SelectDocument(doc models.Document) error {
	if s.minutes != nil {
		return ErrFileLocked
	}
	s.file = &doc
	s.logger.Debug().Str("file", doc.Name).Int("bytes", len(doc.Content)).Msg("file selected")
	return nil
}

// SetDraft replaces the critique draft.
func (s *Session) SetDraft(text string) {
	s.draft = text
}

// Resume enters the review stage with minutes produced earlier, for callers
// that did not run the generation themselves.
func (s *Session) Resume(minutes models.MinutesDocument, critiques []string) error {
	if s.file == nil {
		return ErrNoFile
	}
	m := cloneMinutes(minutes)
	s.minutes = &m
	s.critiques = append([]string(nil), critiques...)
	return nil
}

// BeginGeneration marks a generation in flight and returns the request to
// send. Without a selected file nothing is sent.
func (s *Session) BeginGeneration() (*GenerationRequest, error) {
	if s.file == nil {
		return nil, s.fail(msgNoFile, ErrNoFile)
	}
	s.generating = true
	s.errMsg = nil
	return &GenerationRequest{ID: uuid.NewString(), Document: *s.file}, nil
}

// FinishGeneration applies the outcome of a generation request. The loading
// flag is cleared whatever the outcome.
func (s *Session) FinishGeneration(res *minutesapi.Result, err error) error {
	s.generating = false

	if err == nil && res == nil {
		err = errEmptyResult
	}
	if err != nil {
		return s.failRequest(err, msgGenerateFailed, msgGenerateNetwork, false)
	}

	m := cloneMinutes(res.Minutes)
	s.minutes = &m
	if res.Critique != "" {
		s.critiques = []string{res.Critique}
		s.draft = res.Critique
	}
	s.logger.Info().Str("title", m.Title).Bool("critique", res.Critique != "").Msg("minutes generated")
	return nil
}

// Generate runs a whole generation round trip.
func (s *Session) Generate(ctx context.Context) error {
	req, err := s.BeginGeneration()
	if err != nil {
		return err
	}
	res, err := s.service.GenerateMinutes(ctx, req.Document)
	return s.FinishGeneration(res, err)
}

// BeginCritique marks a critique submission in flight and returns the
// request to send. Both minutes and file must be present.
func (s *Session) BeginCritique() (*CritiqueRequest, error) {
	if s.minutes == nil || s.file == nil {
		return nil, s.fail(msgNothingToProcess, ErrNoMinutes)
	}
	s.sendingCritique = true
	s.errMsg = nil
	return &CritiqueRequest{
		ID:       uuid.NewString(),
		Document: *s.file,
		Critique: s.draft,
		Article:  cloneMinutes(*s.minutes),
	}, nil
}

// FinishCritique applies the outcome of a critique submission. On success
// the minutes are replaced in full, the echoed critique is logged and the
// draft is cleared. On failure minutes and draft stay as they were.
func (s *Session) FinishCritique(res *minutesapi.Result, err error) (Notice, error) {
	s.sendingCritique = false

	if err == nil && res == nil {
		err = errEmptyResult
	}
	if err != nil {
		return NoticeNone, s.failRequest(err, msgCritiqueFailed, msgCritiqueNetwork, true)
	}

	m := cloneMinutes(res.Minutes)
	s.minutes = &m
	if res.Critique != "" {
		s.critiques = append(s.critiques, res.Critique)
	}
	s.draft = ""
	s.logger.Info().Str("title", m.Title).Int("critiques", len(s.critiques)).Msg("critique processed")
	return NoticeCritiqueProcessed, nil
}

// SubmitCritique runs a whole critique round trip.
func (s *Session) SubmitCritique(ctx context.Context) (Notice, error) {
	req, err := s.BeginCritique()
	if err != nil {
		return NoticeNone, err
	}
	res, err := s.service.ProcessCritique(ctx, req.Document, req.Critique, req.Article)
	return s.FinishCritique(res, err)
}

// Save acknowledges the action. Nothing is persisted.
func (s *Session) Save() Notice {
	return NoticeSaved
}

// Restart drops everything and returns to the upload stage.
func (s *Session) Restart() RefreshRequest {
	s.file = nil
	s.minutes = nil
	s.draft = ""
	s.critiques = nil
	s.errMsg = nil
	s.logger.Debug().Msg("session restarted")
	return RefreshRequest{}
}

func (s *Session) fail(msg string, cause error) error {
	s.errMsg = &msg
	return &OperationError{Message: msg, Err: cause}
}

// failRequest sets the banner for a failed request. Server-reported errors
// use the service's own wording; anything else gets the generic network
// message and is only logged. withNote appends the service's extra message
// on its own line.
func (s *Session) failRequest(err error, serverPrefix, networkMsg string, withNote bool) error {
	var serverErr *minutesapi.ServerError
	if errors.As(err, &serverErr) {
		msg := serverPrefix + serverErr.Reason()
		if withNote && serverErr.Message != "" {
			msg += "\n" + serverErr.Message
		}
		s.logger.Warn().Err(err).Int("status", serverErr.StatusCode).Msg("service reported an error")
		return s.fail(msg, err)
	}
	s.logger.Error().Err(err).Msg("request failed")
	return s.fail(networkMsg, err)
}

func cloneMinutes(m models.MinutesDocument) models.MinutesDocument {
	m.Attendees = append([]models.Attendee(nil), m.Attendees...)
	m.Takeaways = append([]string(nil), m.Takeaways...)
	m.Conclusions = append([]string(nil), m.Conclusions...)
	m.NextMeeting = append([]string(nil), m.NextMeeting...)
	m.Tasks = append([]models.Task(nil), m.Tasks...)
	return m
}
