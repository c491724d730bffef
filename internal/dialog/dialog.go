// Package dialog implements the per-user conversation state machine that
// drives the data-collection flow.
package dialog

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/GlebZemlyanikin/RowingModel/internal/models"
	"github.com/GlebZemlyanikin/RowingModel/internal/reftable"
	"github.com/GlebZemlyanikin/RowingModel/internal/timeutil"
)

// Reply is one outbound message: a text, an optional closed choice list to
// render as tappable options, and an optional document attachment.
type Reply struct {
	Text     string
	Options  []string
	Document *Document
}

// Document is a binary artifact delivered as an attachment.
type Document struct {
	Name string
	Data []byte
}

// Store is the per-user state storage the engine runs against.
type Store interface {
	Session(userID int64) (models.Session, bool)
	SetSession(userID int64, s models.Session)
	DeleteSession(userID int64)
	State(userID int64) (models.ConversationState, bool)
	SetState(userID int64, s models.ConversationState)
	DeleteState(userID int64)
	Settings(userID int64) (models.Settings, bool)
	SetSettings(userID int64, s models.Settings)
}

// Exporter produces the report artifact for a finished session.
type Exporter interface {
	Generate(sess models.Session) ([]byte, error)
}

// Engine validates each inbound message against the vocabulary of the
// user's current state and advances the conversation.
type Engine struct {
	store    Store
	exporter Exporter
	now      func() time.Time
}

// New returns an engine backed by the given store and exporter.
func New(store Store, exporter Exporter) *Engine {
	return &Engine{
		store:    store,
		exporter: exporter,
		now:      time.Now,
	}
}

// Start begins a fresh conversation for the user, creating a session if none
// exists. The session itself survives conversation restarts.
func (e *Engine) Start(userID int64) []Reply {
	sess := e.ensureSession(userID)
	sess.LogAction("start", "conversation started")
	e.store.SetSession(userID, sess)

	return e.resetConversation(userID)
}

// Handle processes one inbound message and returns the replies to send.
func (e *Engine) Handle(userID int64, text string) []Reply {
	sess := e.ensureSession(userID)

	cst, ok := e.store.State(userID)
	if !ok || cst.State == models.StateNone {
		return e.resetConversation(userID)
	}

	if isCancel(text) {
		return e.cancel(userID, cst)
	}

	switch cst.State {
	case models.StateWaitingModelType:
		return e.handleModelType(userID, cst, text)
	case models.StateWaitingMode:
		return e.handleMode(userID, cst, text)
	case models.StateWaitingName, models.StateWaitingNewName:
		return e.handleName(userID, cst, sess, text)
	case models.StateWaitingAge:
		return e.handleAge(userID, cst, text)
	case models.StateWaitingDistance:
		return e.handleDistance(userID, cst, text)
	case models.StateWaitingBoat:
		return e.handleBoat(userID, cst, text)
	case models.StateWaitingTime:
		return e.handleTime(userID, cst, sess, text)
	case models.StateWaitingNextAction:
		return e.handleNextAction(userID, cst, sess, text)
	case models.StateEditingLastTime:
		return e.handleEditLast(userID, cst, sess, text)
	default:
		return e.resetConversation(userID)
	}
}

// ensureSession returns the user's session, creating one lazily with a
// synthesized subject label when a message arrives before /start.
func (e *Engine) ensureSession(userID int64) models.Session {
	sess, ok := e.store.Session(userID)
	if ok {
		return sess
	}

	sess = models.Session{
		UserID:    userID,
		Name:      "Спортсмен " + strconv.FormatInt(userID, 10),
		StartTime: e.now(),
	}
	sess.LogAction("autocreate", "session created on first message")
	e.store.SetSession(userID, sess)

	return sess
}

// resetConversation reinitializes the conversation state and prompts for the
// model again. The session is left untouched, and the saved settings order
// the keyboard so the previous choice leads.
func (e *Engine) resetConversation(userID int64) []Reply {
	e.store.SetState(userID, models.ConversationState{
		State: models.StateWaitingModelType,
	})

	settings, _ := e.store.Settings(userID)

	return []Reply{{
		Text:    promptModel,
		Options: withCancel(orderedModelOptions(settings.Model)),
	}}
}

// cancel rewinds one step from the post-entry menu, and resets the whole
// conversation from anywhere else.
func (e *Engine) cancel(userID int64, cst models.ConversationState) []Reply {
	if cst.State == models.StateWaitingNextAction {
		cst.State = models.StateWaitingTime
		e.store.SetState(userID, cst)

		return []Reply{
			{Text: msgCancelled},
			{Text: promptTime, Options: []string{optCancel}},
		}
	}

	replies := []Reply{{Text: msgCancelled}}

	return append(replies, e.resetConversation(userID)...)
}

func (e *Engine) handleModelType(userID int64, cst models.ConversationState, text string) []Reply {
	opt, ok := match(text, modelOptions)
	if !ok {
		return e.reprompt(cst, text, promptModel, withCancel(modelOptions))
	}

	cst.Model = modelFromOption(opt)
	cst.State = models.StateWaitingMode
	e.store.SetState(userID, cst)

	settings, _ := e.store.Settings(userID)
	settings.Model = cst.Model
	e.store.SetSettings(userID, settings)

	return []Reply{{
		Text:    promptMode,
		Options: withCancel(orderedModeOptions(settings.Mode)),
	}}
}

func (e *Engine) handleMode(userID int64, cst models.ConversationState, text string) []Reply {
	opt, ok := match(text, modeOptions)
	if !ok {
		// A stale client keyboard may answer the age question while the
		// bot is still waiting for the mode. Jump to the age state instead
		// of rejecting the input.
		if _, isAge := match(text, reftable.AgeGroups(cst.Model)); isAge {
			slog.Debug(
				"age token received in mode state, short-circuiting",
				slog.String("input", text),
			)

			cst.State = models.StateWaitingAge
			e.store.SetState(userID, cst)

			return []Reply{{
				Text:    promptAge,
				Options: withCancel(reftable.AgeGroups(cst.Model)),
			}}
		}

		return e.reprompt(cst, text, promptMode, withCancel(modeOptions))
	}

	cst.Mode = models.ModeSingle
	if opt == optModeReport {
		cst.Mode = models.ModeReport
	}

	settings, _ := e.store.Settings(userID)
	settings.Mode = cst.Mode
	e.store.SetSettings(userID, settings)

	if cst.Mode == models.ModeReport {
		cst.State = models.StateWaitingName
		e.store.SetState(userID, cst)

		return []Reply{{Text: promptName, Options: []string{optCancel}}}
	}

	cst.State = models.StateWaitingAge
	e.store.SetState(userID, cst)

	return []Reply{{
		Text:    promptAge,
		Options: withCancel(reftable.AgeGroups(cst.Model)),
	}}
}

func (e *Engine) handleName(userID int64, cst models.ConversationState, sess models.Session, text string) []Reply {
	name := strings.TrimSpace(text)
	if name == "" {
		prompt := promptName
		if cst.State == models.StateWaitingNewName {
			prompt = promptNewName
		}

		return []Reply{
			{Text: msgNameEmpty},
			{Text: prompt, Options: []string{optCancel}},
		}
	}

	cst.Name = name
	cst.State = models.StateWaitingAge
	e.store.SetState(userID, cst)

	sess.Name = name
	sess.LogAction("name", name)
	e.store.SetSession(userID, sess)

	return []Reply{{
		Text:    promptAge,
		Options: withCancel(reftable.AgeGroups(cst.Model)),
	}}
}

func (e *Engine) handleAge(userID int64, cst models.ConversationState, text string) []Reply {
	groups := reftable.AgeGroups(cst.Model)

	opt, ok := match(text, groups)
	if !ok {
		return e.reprompt(cst, text, promptAge, withCancel(groups))
	}

	cst.AgeGroup = opt
	cst.State = models.StateWaitingDistance
	e.store.SetState(userID, cst)

	return []Reply{{Text: promptDistance, Options: withCancel(reftable.Distances)}}
}

func (e *Engine) handleDistance(userID int64, cst models.ConversationState, text string) []Reply {
	opt, ok := match(text, reftable.Distances)
	if !ok {
		return e.reprompt(cst, text, promptDistance, withCancel(reftable.Distances))
	}

	distance, err := strconv.ParseFloat(opt, 64)
	if err != nil {
		return e.reprompt(cst, text, promptDistance, withCancel(reftable.Distances))
	}

	cst.Distance = distance
	cst.State = models.StateWaitingBoat
	e.store.SetState(userID, cst)

	return []Reply{{Text: promptBoat, Options: withCancel(reftable.BoatClasses)}}
}

func (e *Engine) handleBoat(userID int64, cst models.ConversationState, text string) []Reply {
	opt, ok := match(text, reftable.BoatClasses)
	if !ok {
		return e.reprompt(cst, text, promptBoat, withCancel(reftable.BoatClasses))
	}

	cst.BoatClass = opt
	cst.State = models.StateWaitingTime
	e.store.SetState(userID, cst)

	return []Reply{{Text: promptTime, Options: []string{optCancel}}}
}

func (e *Engine) handleTime(userID int64, cst models.ConversationState, sess models.Session, text string) []Reply {
	elapsed := timeutil.ParseRaceTime(text)
	if elapsed <= 0 {
		return []Reply{
			{Text: msgBadTime},
			{Text: promptTime, Options: []string{optCancel}},
		}
	}

	res, err := e.buildResult(cst, elapsed)
	if err != nil {
		// Show what was computed as a courtesy, but persist nothing: the
		// conversation may be inconsistent, so it starts over.
		slog.Error(
			"result calculation failed",
			slog.String("state", cst.State.String()),
			slog.Any("error", err),
		)

		replies := []Reply{
			{Text: resultText(res)},
			{Text: msgCalcFailed},
		}

		return append(replies, e.resetConversation(userID)...)
	}

	if cst.Mode == models.ModeReport {
		sess.Results = append(sess.Results, res)
		sess.LogAction("result", fmt.Sprintf(
			"%s %s %.2f%%", res.Name, res.DisplayTime, res.Percent,
		))
		e.store.SetSession(userID, sess)

		cst.State = models.StateWaitingNextAction
		e.store.SetState(userID, cst)

		return []Reply{
			{Text: resultText(res)},
			{Text: promptNextAction, Options: withCancel(nextActionOptions)},
		}
	}

	// Single-entry mode: display only, then back to the beginning.
	replies := []Reply{{Text: resultText(res)}}

	return append(replies, e.resetConversation(userID)...)
}

func (e *Engine) handleNextAction(userID int64, cst models.ConversationState, sess models.Session, text string) []Reply {
	opt, ok := match(text, nextActionOptions)
	if !ok {
		return e.reprompt(cst, text, promptNextAction, withCancel(nextActionOptions))
	}

	switch opt {
	case optRepeat:
		cst.State = models.StateWaitingTime
		e.store.SetState(userID, cst)

		return []Reply{{Text: promptTime, Options: []string{optCancel}}}
	case optNewName:
		// Model and mode apply to the whole session; only the
		// subject-specific fields are dropped.
		e.store.SetState(userID, models.ConversationState{
			State: models.StateWaitingNewName,
			Model: cst.Model,
			Mode:  cst.Mode,
		})

		return []Reply{{Text: promptNewName, Options: []string{optCancel}}}
	case optEditLast:
		if sess.LastResult() == nil {
			return []Reply{
				{Text: msgNoResults},
				{Text: promptNextAction, Options: withCancel(nextActionOptions)},
			}
		}

		cst.State = models.StateEditingLastTime
		e.store.SetState(userID, cst)

		return []Reply{{Text: promptEditTime, Options: []string{optCancel}}}
	default:
		return e.export(userID, sess)
	}
}

// export finalizes the session. On success the session is torn down; on
// failure it is kept so the export can be retried.
func (e *Engine) export(userID int64, sess models.Session) []Reply {
	if len(sess.Results) == 0 {
		return []Reply{
			{Text: msgNoResults},
			{Text: promptNextAction, Options: withCancel(nextActionOptions)},
		}
	}

	data, err := e.exporter.Generate(sess)
	if err != nil {
		slog.Error("report export failed", slog.Any("error", err))

		return []Reply{
			{Text: msgExportFailed},
			{Text: promptNextAction, Options: withCancel(nextActionOptions)},
		}
	}

	slog.Info(
		"report exported",
		slog.Int64("user_id", userID),
		slog.Int("results", len(sess.Results)),
	)

	e.store.DeleteSession(userID)

	replies := []Reply{
		{
			Text: msgExported,
			Document: &Document{
				Name: "report_" + e.now().Format("2006-01-02_15-04") + ".xlsx",
				Data: data,
			},
		},
	}

	return append(replies, e.resetConversation(userID)...)
}

func (e *Engine) handleEditLast(userID int64, cst models.ConversationState, sess models.Session, text string) []Reply {
	elapsed := timeutil.ParseRaceTime(text)
	if elapsed <= 0 {
		return []Reply{
			{Text: msgBadTime},
			{Text: promptEditTime, Options: []string{optCancel}},
		}
	}

	last := sess.LastResult()
	if last == nil {
		cst.State = models.StateWaitingNextAction
		e.store.SetState(userID, cst)

		return []Reply{
			{Text: msgNoResults},
			{Text: promptNextAction, Options: withCancel(nextActionOptions)},
		}
	}

	// The cached percentage is a projection of the elapsed time, so both
	// change together.
	last.ElapsedTime = elapsed
	last.DisplayTime = timeutil.FormatRaceTime(elapsed)
	last.Percent = reftable.Percentage(last.Baseline, last.Distance, elapsed)

	sess.LogAction("edit_last", fmt.Sprintf(
		"%s %.2f%%", last.DisplayTime, last.Percent,
	))
	e.store.SetSession(userID, sess)

	cst.State = models.StateWaitingNextAction
	e.store.SetState(userID, cst)

	return []Reply{
		{Text: resultText(*last)},
		{Text: promptNextAction, Options: withCancel(nextActionOptions)},
	}
}

// buildResult assembles a result from the scratch fields. A lookup miss is
// not an error: the percentage is simply 0. Incomplete scratch fields are an
// error, since they mean the conversation took an impossible path.
func (e *Engine) buildResult(cst models.ConversationState, elapsed float64) (models.Result, error) {
	res := models.Result{
		CreatedAt:   e.now(),
		Name:        cst.Name,
		Model:       cst.Model,
		AgeGroup:    cst.AgeGroup,
		BoatClass:   cst.BoatClass,
		Distance:    cst.Distance,
		ElapsedTime: elapsed,
		DisplayTime: timeutil.FormatRaceTime(elapsed),
	}

	if cst.Model == reftable.ModelNone || cst.AgeGroup == "" ||
		cst.BoatClass == "" || cst.Distance <= 0 {
		return res, errInconsistentState
	}

	baseline, ok := reftable.Lookup(cst.Model, cst.AgeGroup, cst.BoatClass)
	if !ok {
		return res, nil
	}

	res.Baseline = baseline
	res.Percent = reftable.Percentage(baseline, cst.Distance, elapsed)

	return res, nil
}

// reprompt repeats the current state's guidance without advancing. A
// validation miss is informational, never an error.
func (e *Engine) reprompt(cst models.ConversationState, input, prompt string, options []string) []Reply {
	slog.Debug(
		"input did not match state vocabulary",
		slog.String("state", cst.State.String()),
		slog.String("input", input),
	)

	return []Reply{{Text: prompt, Options: options}}
}

func resultText(res models.Result) string {
	if res.Baseline <= 0 {
		return fmt.Sprintf("Время: %s\n%s", res.DisplayTime, msgNoBaseline)
	}

	return fmt.Sprintf(
		"Время: %s\nМодельное время: %s\nПроцент от модели: %.2f%%",
		res.DisplayTime,
		timeutil.FormatRaceTime(res.Baseline),
		res.Percent,
	)
}
