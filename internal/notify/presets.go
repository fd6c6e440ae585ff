package notify

import "context"

// Tags of the session presets. The web app and the journal key on these.
const (
	TagWorkComplete      = "work-complete"
	TagBreakComplete     = "break-complete"
	TagLongBreakComplete = "long-break-complete"
)

var (
	WorkCompleteAlert = AlertRequest{
		Title: "🎯 Focus Session Complete!",
		Body:  "Great work! Time for a well-deserved break.",
		Tag:   TagWorkComplete,
	}
	BreakCompleteAlert = AlertRequest{
		Title: "⏰ Break Time Over!",
		Body:  "Ready to focus? Let's start another productive session.",
		Tag:   TagBreakComplete,
	}
	LongBreakCompleteAlert = AlertRequest{
		Title: "🌟 Long Break Complete!",
		Body:  "You're refreshed and ready. Let's get back to deep work!",
		Tag:   TagLongBreakComplete,
	}
)

// Preset looks up a preset by its tag.
func Preset(tag string) (AlertRequest, bool) {
	switch tag {
	case TagWorkComplete:
		return WorkCompleteAlert, true
	case TagBreakComplete:
		return BreakCompleteAlert, true
	case TagLongBreakComplete:
		return LongBreakCompleteAlert, true
	}
	return AlertRequest{}, false
}

func (m *Manager) WorkComplete(ctx context.Context) (*ActiveAlert, error) {
	return m.Dispatch(ctx, WorkCompleteAlert)
}

func (m *Manager) BreakComplete(ctx context.Context) (*ActiveAlert, error) {
	return m.Dispatch(ctx, BreakCompleteAlert)
}

func (m *Manager) LongBreakComplete(ctx context.Context) (*ActiveAlert, error) {
	return m.Dispatch(ctx, LongBreakCompleteAlert)
}
