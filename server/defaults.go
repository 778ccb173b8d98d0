package main

import "math/rand"

// defaultHabits is the seed set inserted the first time a user visits a
// date with no habit rows: 9 habits, 3 per time-of-day bucket.
func defaultHabits(userID int64, date string) []Habit {
	mk := func(title, desc, bucket string) Habit {
		return Habit{
			UserID:      userID,
			Title:       title,
			Description: desc,
			TimeOfDay:   bucket,
			Date:        date,
			Status:      StatusPending,
			IsDefault:   true,
		}
	}
	return []Habit{
		mk("Fajr Prayer", "Perform Fajr prayer on time", BucketMorning),
		mk("Read Quran (10 mins)", "Read and reflect on Quran for at least 10 minutes", BucketMorning),
		mk("Morning Gratitude", "Write down 3 things you're grateful for", BucketMorning),
		mk("Dhuhr Prayer", "Perform Dhuhr prayer on time", BucketAfternoon),
		mk("Asr Prayer", "Perform Asr prayer on time", BucketAfternoon),
		mk("Work Session (Deep Focus)", "Complete 1 hour of deep focused work", BucketAfternoon),
		mk("Maghrib Prayer", "Perform Maghrib prayer on time", BucketEvening),
		mk("Isha Prayer", "Perform Isha prayer on time", BucketEvening),
		mk("Evening Reflection", "Reflect on your day and plan for tomorrow", BucketEvening),
	}
}

// defaultTasks mirrors the habit seeding for the kanban: 3 starter tasks.
func defaultTasks(userID int64, date string) []Task {
	mk := func(title, desc, at string) Task {
		return Task{
			UserID:        userID,
			Title:         title,
			Description:   desc,
			ScheduledTime: at,
			Status:        TaskTodo,
			Date:          date,
		}
	}
	return []Task{
		mk("Review daily goals", "Check and update daily objectives", "09:00"),
		mk("Complete work project", "Finish the assigned project tasks", "14:00"),
		mk("Exercise session", "30 minutes of physical activity", "18:00"),
	}
}

var quotes = []Quote{
	{Text: "The best way to predict your future is to create it.", Source: "Abraham Lincoln"},
	{Text: "Every soul shall taste death. And We test you with evil and with good as trial; and to Us you will be returned.", Source: "Quran 21:35"},
	{Text: "Atomic habits are the compound interest of self-improvement.", Source: "James Clear"},
	{Text: "The five daily prayers erase the sins committed in between them.", Source: "Hadith, Sahih Muslim"},
	{Text: "Indeed, Allah will not change the condition of a people until they change what is in themselves.", Source: "Quran 13:11"},
	{Text: "Small habits don't add up. They compound.", Source: "James Clear, Atomic Habits"},
	{Text: "The reward of deeds depends upon the intentions.", Source: "Hadith, Sahih Bukhari"},
	{Text: "You do not rise to the level of your goals. You fall to the level of your systems.", Source: "James Clear"},
}

func randomQuote() Quote {
	return quotes[rand.Intn(len(quotes))]
}
