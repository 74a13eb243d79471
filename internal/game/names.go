package game

import "math/rand/v2"

var (
	roomAdjectives = []string{
		"Brave", "Clever", "Cosmic", "Crimson", "Dizzy", "Electric", "Fuzzy", "Golden",
		"Hidden", "Jolly", "Lucky", "Mighty", "Misty", "Noisy", "Quiet", "Rapid",
		"Secret", "Silent", "Sneaky", "Sunny", "Swift", "Tiny", "Wild", "Witty",
	}
	roomNouns = []string{
		"Badger", "Comet", "Dragon", "Falcon", "Fox", "Gecko", "Harbor", "Lantern",
		"Maple", "Meteor", "Otter", "Owl", "Panda", "Pirate", "Raven", "Rocket",
		"Tiger", "Tornado", "Turtle", "Valley", "Walrus", "Wizard", "Yak", "Zebra",
	}
)

// RandomRoomName returns an adjective+noun display name such as "Lucky Otter".
func RandomRoomName() string {
	return roomAdjectives[rand.IntN(len(roomAdjectives))] + " " + roomNouns[rand.IntN(len(roomNouns))]
}
