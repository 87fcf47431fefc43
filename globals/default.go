package globals

import "github.com/hashicorp/go-hclog"

// SentinelRoom is the reserved now_room value meaning "not in any room",
// set on logout and kick.
const SentinelRoom = "left"

// DefaultRooms seeds the room registry when no rooms are configured.
var DefaultRooms = []string{"General", "Cars", "Sports", "Politics"}

var AppLogger = hclog.New(&hclog.LoggerOptions{
	Name:  "chat-presence",
	Level: hclog.LevelFromString("DEBUG"),
})
