package dialog

import (
	"strings"
	"testing"

	"github.com/GlebZemlyanikin/RowingModel/internal/apperr"
	"github.com/GlebZemlyanikin/RowingModel/internal/models"
	"github.com/GlebZemlyanikin/RowingModel/internal/store"
)

type fakeExporter struct {
	sess   models.Session
	err    error
	called int
}

func (f *fakeExporter) Generate(sess models.Session) ([]byte, error) {
	f.called++
	f.sess = sess

	if f.err != nil {
		return nil, f.err
	}

	return []byte("xlsx"), nil
}

func newTestEngine() (*Engine, *store.Memory, *fakeExporter) {
	mem := store.NewMemory()
	exp := &fakeExporter{}

	return New(mem, exp), mem, exp
}

func mustState(t *testing.T, mem *store.Memory, userID int64) models.ConversationState {
	t.Helper()

	cst, ok := mem.State(userID)
	if !ok {
		t.Fatal("expected a conversation state to exist")
	}

	return cst
}

func lastText(replies []Reply) string {
	if len(replies) == 0 {
		return ""
	}

	return replies[len(replies)-1].Text
}

// walk feeds a sequence of inputs to the engine, returning the replies to
// the final one.
func walk(e *Engine, userID int64, inputs ...string) []Reply {
	var replies []Reply

	for _, input := range inputs {
		replies = e.Handle(userID, input)
	}

	return replies
}

func TestFullReportWalk(t *testing.T) {
	e, mem, exp := newTestEngine()

	const userID = 42

	e.Start(userID)

	replies := walk(e, userID,
		"Мировая модель",
		"Создание отчёта",
		"Иван",
		"Elite",
		"2000",
		"1x",
		"6:30.00",
		"Ещё заезд",
		"6:40.00",
	)

	if lastText(replies) != promptNextAction {
		t.Fatalf("expected next-action prompt, got %q", lastText(replies))
	}

	sess, ok := mem.Session(userID)
	if !ok {
		t.Fatal("expected the session to exist before export")
	}

	if len(sess.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(sess.Results))
	}

	if sess.Results[0].Percent != 100 {
		t.Errorf(
			"expected 100%% for the model time, got %v",
			sess.Results[0].Percent,
		)
	}

	replies = e.Handle(userID, "Завершить")

	if replies[0].Document == nil {
		t.Fatal("expected the export reply to carry a document")
	}

	if !strings.HasSuffix(replies[0].Document.Name, ".xlsx") {
		t.Errorf("unexpected document name: %q", replies[0].Document.Name)
	}

	if exp.called != 1 || len(exp.sess.Results) != 2 {
		t.Errorf(
			"expected the exporter to receive 2 results once, got %d calls with %d results",
			exp.called,
			len(exp.sess.Results),
		)
	}

	if _, ok := mem.Session(userID); ok {
		t.Error("expected the session to be destroyed after export")
	}

	if cst := mustState(t, mem, userID); cst.State != models.StateWaitingModelType {
		t.Errorf("expected a fresh conversation after export, got %v", cst.State)
	}
}

func TestSingleModeResetsAfterResult(t *testing.T) {
	e, mem, _ := newTestEngine()

	const userID = 7

	e.Start(userID)

	replies := walk(e, userID,
		"Модель России",
		"Разовый расчёт",
		"Взрослые",
		"1000",
		"2x",
		"3:05.00",
	)

	if !strings.Contains(replies[0].Text, "Процент от модели") {
		t.Errorf("expected a percentage reply, got %q", replies[0].Text)
	}

	if lastText(replies) != promptModel {
		t.Errorf("expected the conversation to restart, got %q", lastText(replies))
	}

	sess, _ := mem.Session(userID)
	if len(sess.Results) != 0 {
		t.Errorf(
			"single mode must not persist results, got %d",
			len(sess.Results),
		)
	}
}

func TestAgeTokenInModeStateShortCircuits(t *testing.T) {
	e, mem, _ := newTestEngine()

	const userID = 9

	e.Start(userID)
	e.Handle(userID, "Мировая модель")

	replies := e.Handle(userID, "U23")

	if cst := mustState(t, mem, userID); cst.State != models.StateWaitingAge {
		t.Fatalf("expected the age state, got %v", cst.State)
	}

	if replies[0].Text != promptAge {
		t.Errorf(
			"expected the age prompt without an error message, got %q",
			replies[0].Text,
		)
	}
}

func TestCancelSemantics(t *testing.T) {
	e, mem, _ := newTestEngine()

	const userID = 11

	e.Start(userID)
	walk(e, userID, "Мировая модель", "Создание отчёта", "Иван", "Elite")

	// Mid-flow cancel resets the whole conversation.
	replies := e.Handle(userID, "Отмена")

	if cst := mustState(t, mem, userID); cst.State != models.StateWaitingModelType {
		t.Fatalf("expected a full reset, got %v", cst.State)
	}

	if lastText(replies) != promptModel {
		t.Errorf("expected the model prompt, got %q", lastText(replies))
	}

	// The session survives a cancel.
	if _, ok := mem.Session(userID); !ok {
		t.Error("expected the session to survive a cancel")
	}

	// From the post-entry menu, cancel only rewinds to the time prompt.
	walk(e, userID,
		"Мировая модель", "Создание отчёта", "Иван",
		"Elite", "2000", "1x", "6:30.00",
	)

	replies = e.Handle(userID, "Отмена")

	if cst := mustState(t, mem, userID); cst.State != models.StateWaitingTime {
		t.Fatalf("expected a one-step rewind, got %v", cst.State)
	}

	if lastText(replies) != promptTime {
		t.Errorf("expected the time prompt, got %q", lastText(replies))
	}
}

func TestEditLastRecomputesPercentage(t *testing.T) {
	e, mem, _ := newTestEngine()

	const userID = 13

	e.Start(userID)
	walk(e, userID,
		"Мировая модель", "Создание отчёта", "Иван",
		"Elite", "2000", "1x", "6:30.00",
		"Ещё заезд", "6:40.00",
	)

	before, _ := mem.Session(userID)
	first := before.Results[0]

	walk(e, userID, "Изменить время", "6:50.00")

	after, _ := mem.Session(userID)
	last := after.Results[1]

	if last.DisplayTime != "6:50.00" || last.ElapsedTime != 410 {
		t.Errorf(
			"expected the last result to be rewritten, got %q / %v",
			last.DisplayTime,
			last.ElapsedTime,
		)
	}

	// 390 / 410 * 100
	if last.Percent != 95.12 {
		t.Errorf("expected the percentage to be recomputed, got %v", last.Percent)
	}

	if after.Results[0] != first {
		t.Error("expected earlier results to stay unchanged")
	}
}

func TestInvalidInputRepromptsWithoutAdvancing(t *testing.T) {
	e, mem, _ := newTestEngine()

	const userID = 17

	e.Start(userID)
	walk(e, userID, "Мировая модель", "Разовый расчёт")

	replies := e.Handle(userID, "что-то не то")

	if cst := mustState(t, mem, userID); cst.State != models.StateWaitingAge {
		t.Fatalf("expected the state to stay put, got %v", cst.State)
	}

	if replies[0].Text != promptAge {
		t.Errorf("expected the same guidance text, got %q", replies[0].Text)
	}
}

func TestInvalidTimeDoesNotRecord(t *testing.T) {
	e, mem, _ := newTestEngine()

	const userID = 19

	e.Start(userID)
	walk(e, userID,
		"Мировая модель", "Создание отчёта", "Иван",
		"Elite", "2000", "1x",
	)

	replies := e.Handle(userID, "not a time")

	if replies[0].Text != msgBadTime {
		t.Errorf("expected the bad-time message, got %q", replies[0].Text)
	}

	if cst := mustState(t, mem, userID); cst.State != models.StateWaitingTime {
		t.Errorf("expected to stay in the time state, got %v", cst.State)
	}

	sess, _ := mem.Session(userID)
	if len(sess.Results) != 0 {
		t.Errorf("expected no results, got %d", len(sess.Results))
	}
}

func TestLazySessionCreation(t *testing.T) {
	e, mem, _ := newTestEngine()

	const userID = 23

	replies := e.Handle(userID, "привет")

	sess, ok := mem.Session(userID)
	if !ok {
		t.Fatal("expected a session to be created on first message")
	}

	if sess.Name == "" {
		t.Error("expected a synthesized subject label")
	}

	if lastText(replies) != promptModel {
		t.Errorf("expected the model prompt, got %q", lastText(replies))
	}
}

func TestExportFailureKeepsSession(t *testing.T) {
	e, mem, exp := newTestEngine()
	exp.err = &apperr.Error{Message: "disk full"}

	const userID = 29

	e.Start(userID)
	walk(e, userID,
		"Мировая модель", "Создание отчёта", "Иван",
		"Elite", "2000", "1x", "6:30.00",
	)

	replies := e.Handle(userID, "Завершить")

	if replies[0].Text != msgExportFailed {
		t.Errorf("expected the export apology, got %q", replies[0].Text)
	}

	if _, ok := mem.Session(userID); !ok {
		t.Error("expected the session to survive a failed export")
	}

	if cst := mustState(t, mem, userID); cst.State != models.StateWaitingNextAction {
		t.Errorf("expected the menu to be offered again, got %v", cst.State)
	}
}

func TestExportWithoutResults(t *testing.T) {
	e, _, exp := newTestEngine()

	const userID = 31

	e.Start(userID)
	walk(e, userID, "Мировая модель", "Создание отчёта", "Иван")

	// Force the menu without a recorded result.
	cst := models.ConversationState{
		State: models.StateWaitingNextAction,
		Model: "world",
		Mode:  models.ModeReport,
		Name:  "Иван",
	}
	e.store.SetState(userID, cst)

	replies := e.Handle(userID, "Завершить")

	if replies[0].Text != msgNoResults {
		t.Errorf("expected the no-data message, got %q", replies[0].Text)
	}

	if exp.called != 0 {
		t.Errorf("expected the exporter not to run, got %d calls", exp.called)
	}
}

// A time arriving while the scratch fields are incomplete means the
// conversation took an impossible path: the user sees the computed time and
// an apology, nothing is persisted, and the dialog starts over.
func TestCalculationFailureResetsWithoutPersisting(t *testing.T) {
	e, mem, _ := newTestEngine()

	const userID = 41

	e.Start(userID)

	e.store.SetState(userID, models.ConversationState{
		State:     models.StateWaitingTime,
		Model:     "world",
		Mode:      models.ModeReport,
		Name:      "Иван",
		AgeGroup:  "Elite",
		BoatClass: "1x",
	})

	replies := e.Handle(userID, "6:30.00")

	if replies[1].Text != msgCalcFailed {
		t.Errorf("expected the calculation apology, got %q", replies[1].Text)
	}

	if lastText(replies) != promptModel {
		t.Errorf("expected the conversation to restart, got %q", lastText(replies))
	}

	if cst := mustState(t, mem, userID); cst.State != models.StateWaitingModelType {
		t.Errorf("expected a full reset, got %v", cst.State)
	}

	sess, _ := mem.Session(userID)
	if len(sess.Results) != 0 {
		t.Errorf("expected nothing persisted, got %d results", len(sess.Results))
	}
}

func TestKeyboardPrefersLastChoices(t *testing.T) {
	e, _, _ := newTestEngine()

	const userID = 43

	e.Start(userID)
	replies := walk(e, userID,
		"Модель России", "Создание отчёта", "Иван",
		"Взрослые", "2000", "1x", "6:30.00",
		"Завершить",
	)

	// The conversation restarted after export; the saved choices lead.
	last := replies[len(replies)-1]
	if last.Text != promptModel || last.Options[0] != optModelRussia {
		t.Errorf(
			"expected the saved model to lead the keyboard, got %q / %v",
			last.Text,
			last.Options,
		)
	}

	replies = e.Handle(userID, "Мировая модель")

	if replies[0].Options[0] != optModeReport {
		t.Errorf(
			"expected the saved mode to lead the keyboard, got %v",
			replies[0].Options,
		)
	}
}

func TestNewNameKeepsModelAndMode(t *testing.T) {
	e, mem, _ := newTestEngine()

	const userID = 37

	e.Start(userID)
	walk(e, userID,
		"Мировая модель", "Создание отчёта", "Иван",
		"Elite", "2000", "1x", "6:30.00",
	)

	e.Handle(userID, "Новое имя")

	cst := mustState(t, mem, userID)
	if cst.State != models.StateWaitingNewName {
		t.Fatalf("expected the rename state, got %v", cst.State)
	}

	if cst.Model == "" || cst.Mode != models.ModeReport {
		t.Error("expected model and mode to be carried over")
	}

	if cst.AgeGroup != "" || cst.BoatClass != "" || cst.Distance != 0 {
		t.Error("expected subject-specific scratch fields to be dropped")
	}

	walk(e, userID, "Пётр", "U23", "1000", "2x", "3:10.00")

	sess, _ := mem.Session(userID)
	if got := sess.Results[1].Name; got != "Пётр" {
		t.Errorf("expected the new subject on the next result, got %q", got)
	}
}
