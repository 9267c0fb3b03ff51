package topic

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/stationlink/stationlink/internal/observability"
)

// Status is the record a server returns for StatusQuery. Keys missing from a
// reply leave their field at the zero value.
type Status struct {
	Version             string        `json:"version" yaml:"version"`
	Respawn             bool          `json:"respawn" yaml:"respawn"`
	Enter               bool          `json:"enter" yaml:"enter"`
	AI                  bool          `json:"ai" yaml:"ai"`
	Host                string        `json:"host" yaml:"host"`
	RoundID             uint32        `json:"round_id" yaml:"round_id"`
	Players             uint32        `json:"players" yaml:"players"`
	Revision            string        `json:"revision" yaml:"revision"`
	RevisionDate        string        `json:"revision_date" yaml:"revision_date"`
	Hub                 bool          `json:"hub" yaml:"hub"`
	Identifier          bool          `json:"identifier" yaml:"identifier"`
	Admins              uint32        `json:"admins" yaml:"admins"`
	GameState           GameState     `json:"gamestate" yaml:"gamestate"`
	MapName             string        `json:"map_name" yaml:"map_name"`
	SecurityLevel       SecurityLevel `json:"security_level" yaml:"security_level"`
	RoundDuration       uint32        `json:"round_duration" yaml:"round_duration"`
	TimeDilationCurrent float32       `json:"time_dilation_current" yaml:"time_dilation_current"`
	TimeDilationAvg     float32       `json:"time_dilation_avg" yaml:"time_dilation_avg"`
	TimeDilationAvgSlow float32       `json:"time_dilation_avg_slow" yaml:"time_dilation_avg_slow"`
	TimeDilationAvgFast float32       `json:"time_dilation_avg_fast" yaml:"time_dilation_avg_fast"`
	SoftPopcap          uint32        `json:"soft_popcap" yaml:"soft_popcap"`
	HardPopcap          uint32        `json:"hard_popcap" yaml:"hard_popcap"`
	ExtremePopcap       uint32        `json:"extreme_popcap" yaml:"extreme_popcap"`
	Popcap              bool          `json:"popcap" yaml:"popcap"`
	Bunkered            bool          `json:"bunkered" yaml:"bunkered"`
	Interviews          bool          `json:"interviews" yaml:"interviews"`
	ShuttleMode         ShuttleMode   `json:"shuttle_mode" yaml:"shuttle_mode"`
	ShuttleTimer        uint32        `json:"shuttle_timer" yaml:"shuttle_timer"`
	PublicAddress       string        `json:"public_address" yaml:"public_address"`
}

type fieldSetter func(s *Status, value string) error

var statusFields = map[string]fieldSetter{
	"version":                textField(func(s *Status) *string { return &s.Version }),
	"respawn":                boolField(func(s *Status) *bool { return &s.Respawn }),
	"enter":                  boolField(func(s *Status) *bool { return &s.Enter }),
	"ai":                     boolField(func(s *Status) *bool { return &s.AI }),
	"host":                   textField(func(s *Status) *string { return &s.Host }),
	"round_id":               uintField(func(s *Status) *uint32 { return &s.RoundID }),
	"players":                uintField(func(s *Status) *uint32 { return &s.Players }),
	"revision":               textField(func(s *Status) *string { return &s.Revision }),
	"revision_date":          textField(func(s *Status) *string { return &s.RevisionDate }),
	"hub":                    boolField(func(s *Status) *bool { return &s.Hub }),
	"identifier":             boolField(func(s *Status) *bool { return &s.Identifier }),
	"admins":                 uintField(func(s *Status) *uint32 { return &s.Admins }),
	"round_duration":         uintField(func(s *Status) *uint32 { return &s.RoundDuration }),
	"time_dilation_current":  floatField(func(s *Status) *float32 { return &s.TimeDilationCurrent }),
	"time_dilation_avg":      floatField(func(s *Status) *float32 { return &s.TimeDilationAvg }),
	"time_dilation_avg_slow": floatField(func(s *Status) *float32 { return &s.TimeDilationAvgSlow }),
	"time_dilation_avg_fast": floatField(func(s *Status) *float32 { return &s.TimeDilationAvgFast }),
	"soft_popcap":            uintField(func(s *Status) *uint32 { return &s.SoftPopcap }),
	"hard_popcap":            uintField(func(s *Status) *uint32 { return &s.HardPopcap }),
	"extreme_popcap":         uintField(func(s *Status) *uint32 { return &s.ExtremePopcap }),
	"popcap":                 boolField(func(s *Status) *bool { return &s.Popcap }),
	"bunkered":               boolField(func(s *Status) *bool { return &s.Bunkered }),
	"interviews":             boolField(func(s *Status) *bool { return &s.Interviews }),
	"shuttle_timer":          uintField(func(s *Status) *uint32 { return &s.ShuttleTimer }),
	"public_address":         textField(func(s *Status) *string { return &s.PublicAddress }),

	"map_name": func(s *Status, v string) error {
		s.MapName = strings.ReplaceAll(v, "+", " ")
		return nil
	},
	"gamestate": func(s *Status, v string) (err error) {
		s.GameState, err = ParseGameState(v)
		return err
	},
	"security_level": func(s *Status, v string) (err error) {
		s.SecurityLevel, err = ParseSecurityLevel(v)
		return err
	},
	"shuttle_mode": func(s *Status, v string) (err error) {
		s.ShuttleMode, err = ParseShuttleMode(v)
		return err
	},
}

// DecodeStatus parses an &-separated key=value status reply. Unknown keys are
// ignored; a recognized key with a malformed value fails the whole decode.
func DecodeStatus(text string) (*Status, error) {
	status := &Status{}

	for _, segment := range strings.Split(text, "&") {
		if segment == "" {
			continue
		}
		key, value, _ := strings.Cut(segment, "=")

		set, ok := statusFields[key]
		if !ok {
			if logger := observability.Logger(); logger != nil {
				logger.Warn("Status reply contained unknown key",
					zap.String("key", key),
					zap.String("value", value))
			}
			continue
		}

		if err := set(status, value); err != nil {
			return nil, &FieldParseError{Key: key, Value: value, Err: err}
		}
	}

	return status, nil
}

func textField(field func(*Status) *string) fieldSetter {
	return func(s *Status, v string) error {
		*field(s) = v
		return nil
	}
}

func boolField(field func(*Status) *bool) fieldSetter {
	return func(s *Status, v string) error {
		*field(s) = v == "1"
		return nil
	}
}

func uintField(field func(*Status) *uint32) fieldSetter {
	return func(s *Status, v string) error {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return err
		}
		*field(s) = uint32(n)
		return nil
	}
}

func floatField(field func(*Status) *float32) fieldSetter {
	return func(s *Status, v string) error {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return err
		}
		*field(s) = float32(f)
		return nil
	}
}
