package workspace

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/strrl/minutes-workspace/internal/minutesapi"
	"github.com/strrl/minutes-workspace/pkg/models"
)

// fakeService records calls and returns canned outcomes.
type fakeService struct {
	generateCalls int
	critiqueCalls int

	generateResult *minutesapi.Result
	generateErr    error
	critiqueResult *minutesapi.Result
	critiqueErr    error

	lastDoc      models.Document
	lastCritique string
	lastArticle  models.MinutesDocument
}

func (f *fakeService) GenerateMinutes(_ context.Context, doc models.Document) (*minutesapi.Result, error) {
	f.generateCalls++
	f.lastDoc = doc
	return f.generateResult, f.generateErr
}

func (f *fakeService) ProcessCritique(_ context.Context, doc models.Document, critique string, current models.MinutesDocument) (*minutesapi.Result, error) {
	f.critiqueCalls++
	f.lastDoc = doc
	f.lastCritique = critique
	f.lastArticle = current
	return f.critiqueResult, f.critiqueErr
}

var testDoc = models.Document{Name: "acta.txt", Content: []byte("contenido")}

func minutes(title string) models.MinutesDocument {
	return models.MinutesDocument{
		Title:       title,
		Date:        "01/02/2024",
		Attendees:   []models.Attendee{{Name: "Ana", Position: "Directora", Role: "Moderadora"}},
		Summary:     "Resumen de " + title,
		Takeaways:   []string{"punto"},
		Conclusions: []string{"conclusión"},
		NextMeeting: []string{"compromiso"},
		Tasks:       []models.Task{{Responsible: "Luis", Date: "lunes", Description: "Enviar acta"}},
	}
}

func newReviewSession(t *testing.T, svc *fakeService) *Session {
	t.Helper()
	s := New(svc, zerolog.Nop())
	require.NoError(t, s.SelectDocument(testDoc))
	svc.generateResult = &minutesapi.Result{Minutes: minutes("T1"), Critique: "X"}
	require.NoError(t, s.Generate(context.Background()))
	require.Equal(t, StageReview, s.Stage())
	return s
}

func TestNewSessionIsEmpty(t *testing.T) {
	s := New(&fakeService{}, zerolog.Nop())

	st := s.State()
	assert.Equal(t, StageUpload, s.Stage())
	assert.Nil(t, st.File)
	assert.Nil(t, st.Minutes)
	assert.Empty(t, st.Draft)
	assert.Empty(t, st.Critiques)
	assert.Nil(t, st.Error)
	assert.False(t, st.Generating)
	assert.False(t, st.SendingCritique)
}

func TestGenerateEntersReview(t *testing.T) {
	svc := &fakeService{generateResult: &minutesapi.Result{Minutes: models.MinutesDocument{Title: "T", Attendees: []models.Attendee{}}}}
	s := New(svc, zerolog.Nop())
	require.NoError(t, s.SelectDocument(testDoc))

	require.NoError(t, s.Generate(context.Background()))

	st := s.State()
	assert.Equal(t, StageReview, s.Stage())
	require.NotNil(t, st.Minutes)
	assert.Equal(t, "T", st.Minutes.Title)
	assert.Empty(t, st.Critiques)
	assert.Empty(t, st.Draft)
	assert.False(t, st.Generating)
	assert.Equal(t, testDoc, svc.lastDoc)
}

func TestGenerateSeedsDraftAndLogFromCritique(t *testing.T) {
	svc := &fakeService{generateResult: &minutesapi.Result{Minutes: minutes("T"), Critique: "X"}}
	s := New(svc, zerolog.Nop())
	require.NoError(t, s.SelectDocument(testDoc))

	require.NoError(t, s.Generate(context.Background()))

	st := s.State()
	assert.Equal(t, "X", st.Draft)
	assert.Equal(t, []string{"X"}, st.Critiques)
}

func TestGenerateServerError(t *testing.T) {
	svc := &fakeService{generateErr: &minutesapi.ServerError{StatusCode: 400, StatusText: "Bad Request", Detail: "bad file"}}
	s := New(svc, zerolog.Nop())
	require.NoError(t, s.SelectDocument(testDoc))

	err := s.Generate(context.Background())

	require.Error(t, err)
	assert.Equal(t, "Error generando acta: bad file", err.Error())
	assert.Equal(t, "Error generando acta: bad file", s.ErrorMessage())
	assert.False(t, s.State().Generating)
	assert.Equal(t, StageUpload, s.Stage())
}

func TestGenerateServerErrorWithoutDetailUsesStatusText(t *testing.T) {
	svc := &fakeService{generateErr: &minutesapi.ServerError{StatusCode: 500, StatusText: "Internal Server Error", Message: "ignored"}}
	s := New(svc, zerolog.Nop())
	require.NoError(t, s.SelectDocument(testDoc))

	_ = s.Generate(context.Background())

	assert.Equal(t, "Error generando acta: Internal Server Error", s.ErrorMessage())
}

func TestGenerateTransportError(t *testing.T) {
	cause := errors.New("connection refused")
	svc := &fakeService{generateErr: &minutesapi.TransportError{Op: minutesapi.OpGenerate, Err: cause}}
	s := New(svc, zerolog.Nop())
	require.NoError(t, s.SelectDocument(testDoc))

	err := s.Generate(context.Background())

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Error de red al generar acta", s.ErrorMessage())
	assert.False(t, s.State().Generating)
}

func TestGenerateWithoutFileSendsNothing(t *testing.T) {
	svc := &fakeService{}
	s := New(svc, zerolog.Nop())

	err := s.Generate(context.Background())

	assert.ErrorIs(t, err, ErrNoFile)
	assert.Zero(t, svc.generateCalls)
	assert.NotEmpty(t, s.ErrorMessage())
	assert.False(t, s.State().Generating)
}

func TestBeginGenerationSetsLoadingAndClearsError(t *testing.T) {
	s := New(&fakeService{}, zerolog.Nop())
	_ = s.Generate(context.Background())
	require.NotEmpty(t, s.ErrorMessage())
	require.NoError(t, s.SelectDocument(testDoc))

	req, err := s.BeginGeneration()
	require.NoError(t, err)

	assert.NotEmpty(t, req.ID)
	assert.Equal(t, testDoc, req.Document)
	assert.True(t, s.State().Generating)
	assert.Empty(t, s.ErrorMessage())
}

func TestCritiqueWithoutMinutesSendsNothing(t *testing.T) {
	svc := &fakeService{}
	s := New(svc, zerolog.Nop())
	require.NoError(t, s.SelectDocument(testDoc))
	s.SetDraft("más detalle")

	notice, err := s.SubmitCritique(context.Background())

	assert.ErrorIs(t, err, ErrNoMinutes)
	assert.Equal(t, NoticeNone, notice)
	assert.Zero(t, svc.critiqueCalls)
	assert.Equal(t, "No hay acta o archivo para procesar.", s.ErrorMessage())
	assert.False(t, s.State().SendingCritique)
}

func TestCritiqueReplacesMinutesAndAppendsLog(t *testing.T) {
	svc := &fakeService{}
	s := newReviewSession(t, svc)
	s.SetDraft("Añade los cargos")
	revised := models.MinutesDocument{Title: "T2", Summary: "nuevo"}
	svc.critiqueResult = &minutesapi.Result{Minutes: revised, Critique: "Y"}

	notice, err := s.SubmitCritique(context.Background())
	require.NoError(t, err)

	st := s.State()
	assert.Equal(t, NoticeCritiqueProcessed, notice)
	require.NotNil(t, st.Minutes)
	assert.Equal(t, "T2", st.Minutes.Title)
	assert.Equal(t, "nuevo", st.Minutes.Summary)
	assert.Empty(t, st.Minutes.Attendees, "minutes are replaced, not merged")
	assert.Empty(t, st.Minutes.Tasks)
	assert.Equal(t, []string{"X", "Y"}, st.Critiques)
	assert.Empty(t, st.Draft)
	assert.False(t, st.SendingCritique)

	assert.Equal(t, testDoc, svc.lastDoc, "the same file is re-sent")
	assert.Equal(t, "Añade los cargos", svc.lastCritique)
	assert.Equal(t, "T1", svc.lastArticle.Title)
}

func TestCritiqueWithoutEchoStillClearsDraft(t *testing.T) {
	svc := &fakeService{}
	s := newReviewSession(t, svc)
	s.SetDraft("algo")
	svc.critiqueResult = &minutesapi.Result{Minutes: minutes("T2")}

	_, err := s.SubmitCritique(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"X"}, s.State().Critiques)
	assert.Empty(t, s.Draft())
}

func TestCritiqueServerErrorAppendsMessage(t *testing.T) {
	svc := &fakeService{}
	s := newReviewSession(t, svc)
	s.SetDraft("borrador")
	svc.critiqueErr = &minutesapi.ServerError{StatusCode: 422, StatusText: "Unprocessable Entity", Detail: "acta inválida", Message: "falta el título"}

	_, err := s.SubmitCritique(context.Background())

	require.Error(t, err)
	assert.Equal(t, "Error al procesar la crítica: acta inválida\nfalta el título", s.ErrorMessage())
	assert.Equal(t, "T1", s.State().Minutes.Title)
	assert.Equal(t, "borrador", s.Draft())
	assert.False(t, s.State().SendingCritique)
}

func TestCritiqueServerErrorWithoutMessage(t *testing.T) {
	svc := &fakeService{}
	s := newReviewSession(t, svc)
	svc.critiqueErr = &minutesapi.ServerError{StatusCode: 502, StatusText: "Bad Gateway"}

	_, _ = s.SubmitCritique(context.Background())

	assert.Equal(t, "Error al procesar la crítica: Bad Gateway", s.ErrorMessage())
}

func TestCritiqueTransportErrorKeepsState(t *testing.T) {
	svc := &fakeService{}
	s := newReviewSession(t, svc)
	s.SetDraft("borrador")
	svc.critiqueErr = &minutesapi.TransportError{Op: minutesapi.OpCritique, Err: errors.New("timeout")}

	_, err := s.SubmitCritique(context.Background())

	require.Error(t, err)
	assert.Equal(t, "Error de red al procesar la crítica", s.ErrorMessage())
	assert.Equal(t, "T1", s.State().Minutes.Title)
	assert.Equal(t, "borrador", s.Draft())
	assert.Equal(t, []string{"X"}, s.State().Critiques)
}

func TestNewErrorReplacesPrevious(t *testing.T) {
	svc := &fakeService{}
	s := newReviewSession(t, svc)
	svc.critiqueErr = &minutesapi.ServerError{StatusCode: 500, StatusText: "Internal Server Error", Detail: "uno"}
	_, _ = s.SubmitCritique(context.Background())
	svc.critiqueErr = &minutesapi.ServerError{StatusCode: 500, StatusText: "Internal Server Error", Detail: "dos"}
	_, _ = s.SubmitCritique(context.Background())

	assert.Equal(t, "Error al procesar la crítica: dos", s.ErrorMessage())
}

func TestRestartResetsEverything(t *testing.T) {
	svc := &fakeService{}
	s := newReviewSession(t, svc)
	s.SetDraft("pendiente")
	svc.critiqueErr = &minutesapi.ServerError{StatusCode: 500, StatusText: "Internal Server Error"}
	_, _ = s.SubmitCritique(context.Background())
	require.NotEmpty(t, s.ErrorMessage())

	refresh := s.Restart()

	assert.Equal(t, RefreshRequest{}, refresh)
	st := s.State()
	assert.Equal(t, StageUpload, s.Stage())
	assert.Nil(t, st.File)
	assert.Nil(t, st.Minutes)
	assert.Empty(t, st.Draft)
	assert.Empty(t, st.Critiques)
	assert.Nil(t, st.Error)
}

func TestSaveNeverMutates(t *testing.T) {
	svc := &fakeService{}
	s := newReviewSession(t, svc)
	s.SetDraft("borrador")
	before := s.State()

	for i := 0; i < 3; i++ {
		assert.Equal(t, NoticeSaved, s.Save())
	}

	assert.Equal(t, before, s.State())
	assert.Zero(t, svc.critiqueCalls)
}

func TestFileLockedInReview(t *testing.T) {
	s := newReviewSession(t, &fakeService{})

	err := s.SelectDocument(models.Document{Name: "otro.pdf"})

	assert.ErrorIs(t, err, ErrFileLocked)
	assert.Equal(t, testDoc.Name, s.State().File.Name)
}

func TestSelectFileReadsBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reunion.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))
	s := New(&fakeService{}, zerolog.Nop())

	require.NoError(t, s.SelectFile(path))

	st := s.State()
	require.NotNil(t, st.File)
	assert.Equal(t, "reunion.pdf", st.File.Name)
	assert.Equal(t, []byte("%PDF-1.4"), st.File.Content)
}

func TestSelectFileMissing(t *testing.T) {
	s := New(&fakeService{}, zerolog.Nop())

	err := s.SelectFile(filepath.Join(t.TempDir(), "nope.txt"))

	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, "No se pudo leer el documento: nope.txt", s.ErrorMessage())
	assert.Nil(t, s.State().File)
}

func TestStateIsACopy(t *testing.T) {
	s := newReviewSession(t, &fakeService{})

	st := s.State()
	st.Minutes.Title = "changed"
	st.Critiques[0] = "changed"

	assert.Equal(t, "T1", s.State().Minutes.Title)
	assert.Equal(t, "X", s.State().Critiques[0])
}

func TestResume(t *testing.T) {
	s := New(&fakeService{}, zerolog.Nop())
	assert.ErrorIs(t, s.Resume(minutes("T"), nil), ErrNoFile)

	require.NoError(t, s.SelectDocument(testDoc))
	require.NoError(t, s.Resume(minutes("T"), []string{"previa"}))

	assert.Equal(t, StageReview, s.Stage())
	assert.Equal(t, []string{"previa"}, s.State().Critiques)
}

func TestFinishWithoutResultIsNetworkError(t *testing.T) {
	s := New(&fakeService{}, zerolog.Nop())
	require.NoError(t, s.SelectDocument(testDoc))
	_, err := s.BeginGeneration()
	require.NoError(t, err)

	err = s.FinishGeneration(nil, nil)

	assert.Error(t, err)
	assert.Equal(t, "Error de red al generar acta", s.ErrorMessage())
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "upload", StageUpload.String())
	assert.Equal(t, "review", StageReview.String())
}

// End to end against a real HTTP server.
func TestSessionWithHTTPClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case minutesapi.GeneratePath:
			_, _ = w.Write([]byte(`{"title":"T","attendees":[],"takeaways":[],"conclusions":[],"next_meeting":[],"tasks":[],"critique":"X"}`))
		case minutesapi.CritiquePath:
			if r.FormValue("critique") == "" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"detail":"critique required"}`))
				return
			}
			_, _ = w.Write([]byte(`{"title":"T2","attendees":[],"takeaways":[],"conclusions":[],"next_meeting":[],"tasks":[],"critique":"Y"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	s := New(minutesapi.NewClient(srv.URL), zerolog.Nop())
	require.NoError(t, s.SelectDocument(testDoc))
	require.NoError(t, s.Generate(context.Background()))
	assert.Equal(t, "X", s.Draft())

	s.SetDraft("")
	_, err := s.SubmitCritique(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Error al procesar la crítica: critique required", s.ErrorMessage())

	s.SetDraft("Incluye fechas")
	_, err = s.SubmitCritique(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "T2", s.State().Minutes.Title)
	assert.Equal(t, []string{"X", "Y"}, s.State().Critiques)
	assert.Empty(t, s.ErrorMessage())
}

func TestNullGenerateResponseKeepsUploadStage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`null`))
	}))
	defer srv.Close()

	s := New(minutesapi.NewClient(srv.URL), zerolog.Nop())
	require.NoError(t, s.SelectDocument(testDoc))

	err := s.Generate(context.Background())

	require.Error(t, err)
	assert.Equal(t, StageUpload, s.Stage())
	assert.Nil(t, s.State().Minutes)
	assert.Empty(t, s.State().Critiques)
	assert.Equal(t, "Error de red al generar acta", s.ErrorMessage())
	assert.False(t, s.State().Generating)
}
