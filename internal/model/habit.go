package model

// HabitDefinition is a trackable daily system shown on the dashboard.
type HabitDefinition struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

var defaultHabits = []HabitDefinition{
	{ID: "gym", Label: "Gym"},
	{ID: "sleep", Label: "Sleep"},
	{ID: "study", Label: "Study"},
	{ID: "new-skill", Label: "New Skill"},
	{ID: "food", Label: "Food"},
	{ID: "water", Label: "Water"},
	{ID: "money", Label: "Money Gain"},
	{ID: "healthy", Label: "Healthy"},
	{ID: "social", Label: "Social Interaction"},
	{ID: "love", Label: "Love Life"},
	{ID: "content", Label: "Content"},
	{ID: "productivity", Label: "Productivity"},
}

// DefaultHabits returns a fresh copy of the built-in habit list.
func DefaultHabits() []HabitDefinition {
	out := make([]HabitDefinition, len(defaultHabits))
	copy(out, defaultHabits)
	return out
}
