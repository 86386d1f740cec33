package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// Scenario is a set of CopyRect cases over one source texture.
//
//	width = 2048
//	height = 2048
//
//	[[rect]]
//	name = "inset"
//	direction = "readback"
//	x = 97
//	y = 33
//	w = 512
//	h = 794
type Scenario struct {
	Width  int        `toml:"width"`
	Height int        `toml:"height"`
	Rects  []RectCase `toml:"rect"`
}

// RectCase is one CopyRect call. DstWidth and DstHeight default to W and H.
type RectCase struct {
	Name      string `toml:"name"`
	Direction string `toml:"direction"` // "upload" (default) or "readback"
	X         int    `toml:"x"`
	Y         int    `toml:"y"`
	W         int    `toml:"w"`
	H         int    `toml:"h"`
	DstWidth  int    `toml:"dst_width"`
	DstHeight int    `toml:"dst_height"`
	Expect    string `toml:"expect"` // "ok" (default) or "out_of_range"
}

var errScenario = errors.New("invalid scenario")

// LoadScenario decodes and validates a scenario file. Unknown keys are
// rejected so that typos do not silently drop cases.
func LoadScenario(path string) (*Scenario, error) {
	var s Scenario
	md, err := toml.DecodeFile(path, &s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errScenario, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w: unknown keys %s", errScenario, strings.Join(keys, ", "))
	}
	if err := s.normalize(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Scenario) normalize() error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("%w: source size %dx%d", errScenario, s.Width, s.Height)
	}
	if len(s.Rects) == 0 {
		return fmt.Errorf("%w: no [[rect]] cases", errScenario)
	}
	for i := range s.Rects {
		r := &s.Rects[i]
		if r.Name == "" {
			r.Name = fmt.Sprintf("rect%d", i)
		}
		switch r.Direction {
		case "":
			r.Direction = "upload"
		case "upload", "readback":
		default:
			return fmt.Errorf("%w: %s: direction %q", errScenario, r.Name, r.Direction)
		}
		switch r.Expect {
		case "":
			r.Expect = "ok"
		case "ok", "out_of_range":
		default:
			return fmt.Errorf("%w: %s: expect %q", errScenario, r.Name, r.Expect)
		}
		if r.DstWidth <= 0 {
			r.DstWidth = max(r.W, 1)
		}
		if r.DstHeight <= 0 {
			r.DstHeight = max(r.H, 1)
		}
	}
	return nil
}
