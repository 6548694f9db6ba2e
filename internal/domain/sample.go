package domain

// RawSample maps inventory group names to the raw values sampled for one
// capture instant. Group payloads are either a single object or a list of
// objects (map[string]any / []map[string]any).
type RawSample map[string]any

// Inventory group names sampled on every tick.
const (
	GroupLoad        = "load"
	GroupMemory      = "memory"
	GroupFilesystems = "filesystems"
	GroupGraphics    = "graphics"
)

// DefaultGroups is the group set the scheduler requests each tick.
var DefaultGroups = []string{GroupLoad, GroupMemory, GroupFilesystems, GroupGraphics}
