package ai

import "questbot/internal/model"

type prompt struct {
	system string
	user   string
}

var prompts = map[model.Theme]prompt{
	model.ThemeLight: {
		system: "You write short, kind and cheerful quests out of everyday chores.",
		user: "Turn this task into a light-hearted fairy-tale quest of 3-4 sentences. " +
			"Keep it warm and encouraging and end with a clear call to action.\n\nTask: {TASK}",
	},
	model.ThemeBlack: {
		system: "You are a quest master with a dark sense of humor.",
		user: "Turn this mundane task into an epic quest of 3-4 sentences full of dark humor and mock gravity. " +
			"The hero must still be able to tell what to actually do.\n\nTask: {TASK}",
	},
	model.ThemeVenture: {
		system: "You are a startup mentor who frames chores as bold business ventures.",
		user: "Pitch this task as a high-stakes venture mission in 3-4 sentences, with KPIs, investors and a launch deadline. " +
			"Keep the real task recognizable.\n\nTask: {TASK}",
	},
}

func promptFor(theme model.Theme) prompt {
	if p, ok := prompts[theme]; ok {
		return p
	}
	return prompts[model.DefaultTheme]
}
