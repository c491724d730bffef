package dialog

import (
	"strings"

	"github.com/GlebZemlyanikin/RowingModel/internal/models"
	"github.com/GlebZemlyanikin/RowingModel/internal/reftable"
)

// User-facing texts. The bot speaks a single locale.
const (
	promptModel      = "Выберите модель:"
	promptMode       = "Выберите режим:"
	promptName       = "Введите имя спортсмена:"
	promptNewName    = "Введите имя следующего спортсмена:"
	promptAge        = "Выберите возрастную группу:"
	promptDistance   = "Выберите дистанцию (м):"
	promptBoat       = "Выберите класс лодки:"
	promptTime       = "Введите время заезда (например 7:45.55):"
	promptEditTime   = "Введите новое время последнего заезда:"
	promptNextAction = "Что дальше?"

	msgBadTime      = "Не удалось распознать время. Примеры: 45.55, 7:45.55, 7.45.55"
	msgNoBaseline   = "Для этой комбинации нет модельного времени, процент равен 0."
	msgCalcFailed   = "Произошла ошибка при расчёте. Начнём заново."
	msgExportFailed = "Не удалось сформировать отчёт. Попробуйте ещё раз."
	msgNoResults    = "Нет данных для отчёта."
	msgExported     = "Отчёт сформирован. Сессия завершена."
	msgCancelled    = "Действие отменено."
	msgNameEmpty    = "Имя не может быть пустым."
)

const (
	optModelWorld  = "Мировая модель"
	optModelRussia = "Модель России"
	optModeSingle  = "Разовый расчёт"
	optModeReport  = "Создание отчёта"
	optRepeat      = "Ещё заезд"
	optNewName     = "Новое имя"
	optEditLast    = "Изменить время"
	optExport      = "Завершить"
	optCancel      = "Отмена"
)

var (
	modelOptions      = []string{optModelWorld, optModelRussia}
	modeOptions       = []string{optModeSingle, optModeReport}
	nextActionOptions = []string{optRepeat, optNewName, optEditLast, optExport}
)

// match finds the first vocabulary entry the input satisfies, either by
// exact equality or by containment. Clients may echo extra characters around
// a button label, so containment is deliberate. Vocabulary lists are built
// so that no entry is a substring of another; matching order is therefore
// unambiguous.
func match(input string, vocab []string) (string, bool) {
	in := strings.ToLower(strings.TrimSpace(input))

	for _, entry := range vocab {
		e := strings.ToLower(entry)
		if in == e || strings.Contains(in, e) {
			return entry, true
		}
	}

	return "", false
}

func isCancel(input string) bool {
	_, ok := match(input, []string{optCancel})
	return ok
}

func modelFromOption(opt string) reftable.ModelType {
	switch opt {
	case optModelWorld:
		return reftable.ModelWorld
	case optModelRussia:
		return reftable.ModelRussia
	default:
		return reftable.ModelNone
	}
}

// orderedModelOptions puts the user's previous model choice first so a
// returning user repeats the last run from the top button.
func orderedModelOptions(last reftable.ModelType) []string {
	if last == reftable.ModelRussia {
		return []string{optModelRussia, optModelWorld}
	}

	return modelOptions
}

// orderedModeOptions does the same for the saved mode.
func orderedModeOptions(last models.Mode) []string {
	if last == models.ModeReport {
		return []string{optModeReport, optModeSingle}
	}

	return modeOptions
}

// withCancel appends the cancel button to a choice list.
func withCancel(options []string) []string {
	out := make([]string, 0, len(options)+1)
	out = append(out, options...)

	return append(out, optCancel)
}
