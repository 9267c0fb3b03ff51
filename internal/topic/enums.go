package topic

import "fmt"

// GameState is the phase of the current round.
type GameState uint8

const (
	GameStateStartup GameState = iota
	GameStatePregame
	GameStateSettingUp
	GameStatePlaying
	GameStateFinished
)

// gameStateNames are the names API consumers already depend on.
var gameStateNames = [...]string{"startup", "pregame", "settingup", "playing", "finished"}

// ParseGameState converts the numeric wire value ("0".."4").
func ParseGameState(s string) (GameState, error) {
	if len(s) == 1 && s[0] >= '0' && int(s[0]-'0') < len(gameStateNames) {
		return GameState(s[0] - '0'), nil
	}
	return 0, &EnumConversionError{Kind: "game state", Value: s}
}

func (g GameState) String() string {
	if int(g) < len(gameStateNames) {
		return gameStateNames[g]
	}
	return fmt.Sprintf("gamestate(%d)", uint8(g))
}

func (g GameState) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// SecurityLevel is the station alert level.
type SecurityLevel uint8

const (
	SecurityLevelGreen SecurityLevel = iota
	SecurityLevelBlue
	SecurityLevelRed
	SecurityLevelDelta
)

var securityLevelNames = [...]string{"green", "blue", "red", "delta"}

// ParseSecurityLevel converts the lowercase wire name.
func ParseSecurityLevel(s string) (SecurityLevel, error) {
	for i, name := range securityLevelNames {
		if s == name {
			return SecurityLevel(i), nil
		}
	}
	return 0, &EnumConversionError{Kind: "security level", Value: s}
}

func (l SecurityLevel) String() string {
	if int(l) < len(securityLevelNames) {
		return securityLevelNames[l]
	}
	return fmt.Sprintf("securitylevel(%d)", uint8(l))
}

func (l SecurityLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// ShuttleMode is the state of the emergency shuttle.
type ShuttleMode uint8

const (
	ShuttleModeIdle ShuttleMode = iota
	ShuttleModeIgniting
	ShuttleModeRecalled
	ShuttleModeCalled
	ShuttleModeDocked
	ShuttleModeStranded
	ShuttleModeDisabled
	ShuttleModeEscape
	ShuttleModeEndgame
	ShuttleModeRecharging
	ShuttleModeLanding
)

// shuttleModeNames keep the misspelled "recallled" and the colon form of
// endgame that API consumers already depend on.
var shuttleModeNames = [...]string{
	"idle", "igniting", "recallled", "called", "docked", "stranded",
	"disabled", "escape", "endgame: game over", "recharging", "landing",
}

// shuttleModeWire maps wire literals to modes. The endgame literal arrives
// still percent-encoded and is matched as-is.
var shuttleModeWire = map[string]ShuttleMode{
	"idle":                 ShuttleModeIdle,
	"igniting":             ShuttleModeIgniting,
	"recallled":            ShuttleModeRecalled,
	"called":               ShuttleModeCalled,
	"docked":               ShuttleModeDocked,
	"stranded":             ShuttleModeStranded,
	"disabled":             ShuttleModeDisabled,
	"escape":               ShuttleModeEscape,
	"endgame%3a+game+over": ShuttleModeEndgame,
	"recharging":           ShuttleModeRecharging,
	"landing":              ShuttleModeLanding,
}

// ParseShuttleMode converts the wire literal.
func ParseShuttleMode(s string) (ShuttleMode, error) {
	if mode, ok := shuttleModeWire[s]; ok {
		return mode, nil
	}
	return 0, &EnumConversionError{Kind: "shuttle mode", Value: s}
}

func (m ShuttleMode) String() string {
	if int(m) < len(shuttleModeNames) {
		return shuttleModeNames[m]
	}
	return fmt.Sprintf("shuttlemode(%d)", uint8(m))
}

func (m ShuttleMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}
