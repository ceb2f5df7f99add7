package filter

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pipelined/audiomix"
)

// ErrInvalidArgs is returned when node parameters can't be applied.
var ErrInvalidArgs = errors.New("invalid arguments")

// args holds parsed node parameters. Every consumed key is tracked so
// unknown parameters are reported as errors.
type args struct {
	named      map[string]string
	positional []string
	used       map[string]bool
	usedPos    int
}

func parseArgs(s string) (args, error) {
	a := args{
		named: map[string]string{},
		used:  map[string]bool{},
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return a, nil
	}
	for _, p := range strings.Split(s, ":") {
		p = strings.TrimSpace(p)
		if p == "" {
			return a, fmt.Errorf("%w: empty parameter in %q", ErrInvalidArgs, s)
		}
		kv := strings.SplitN(p, "=", 2)
		if len(kv) == 1 {
			if len(a.named) > 0 {
				return a, fmt.Errorf("%w: positional %q after named parameters", ErrInvalidArgs, p)
			}
			a.positional = append(a.positional, kv[0])
			continue
		}
		if _, ok := a.named[kv[0]]; ok {
			return a, fmt.Errorf("%w: duplicate parameter %q", ErrInvalidArgs, kv[0])
		}
		a.named[kv[0]] = kv[1]
	}
	return a, nil
}

// lookup returns value by key or next positional value.
func (a *args) lookup(key string) (string, bool) {
	if v, ok := a.named[key]; ok {
		a.used[key] = true
		return v, true
	}
	if a.usedPos < len(a.positional) {
		v := a.positional[a.usedPos]
		a.usedPos++
		return v, true
	}
	return "", false
}

// lookupAny returns value of the first present key among aliases.
func (a *args) lookupAny(keys ...string) (string, bool) {
	for _, k := range keys[1:] {
		if v, ok := a.named[k]; ok {
			a.used[k] = true
			return v, true
		}
	}
	return a.lookup(keys[0])
}

func (a *args) int64(def int64, keys ...string) (int64, error) {
	v, ok := a.lookupAny(keys...)
	if !ok {
		return def, nil
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidArgs, keys[0], v)
	}
	return i, nil
}

func (a *args) int(def int, keys ...string) (int, error) {
	i, err := a.int64(int64(def), keys...)
	return int(i), err
}

func (a *args) float(def float64, keys ...string) (float64, error) {
	v, ok := a.lookupAny(keys...)
	if !ok {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidArgs, keys[0], v)
	}
	return f, nil
}

func (a *args) string(def string, keys ...string) string {
	v, ok := a.lookupAny(keys...)
	if !ok {
		return def
	}
	return v
}

// format reads optional sample_fmt, sample_rate and channels parameters.
// Plural aliases are accepted. Zero values mean any.
func (a *args) format() (audiomix.Format, error) {
	var (
		f   audiomix.Format
		err error
	)
	if v, ok := a.namedAny("sample_fmt", "sample_fmts"); ok {
		f.SampleFormat = audiomix.SampleFormat(v)
		if !f.SampleFormat.Valid() {
			return f, fmt.Errorf("%w: sample format %q", ErrInvalidArgs, v)
		}
	}
	if v, ok := a.namedAny("sample_rate", "sample_rates"); ok {
		if f.SampleRate, err = strconv.Atoi(v); err != nil || f.SampleRate <= 0 {
			return f, fmt.Errorf("%w: sample rate %q", ErrInvalidArgs, v)
		}
	}
	if v, ok := a.namedAny("channels", "channel_layout", "channel_layouts"); ok {
		if f.NumChannels, err = parseChannels(v); err != nil {
			return f, err
		}
	}
	return f, nil
}

func (a *args) namedAny(keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := a.named[k]; ok {
			a.used[k] = true
			return v, true
		}
	}
	return "", false
}

// parseChannels accepts number of channels or layout name.
func parseChannels(v string) (int, error) {
	switch v {
	case "mono":
		return 1, nil
	case "stereo":
		return 2, nil
	}
	if strings.HasPrefix(v, "0x") {
		mask, err := strconv.ParseUint(v[2:], 16, 64)
		if err != nil || mask == 0 {
			return 0, fmt.Errorf("%w: channel layout %q", ErrInvalidArgs, v)
		}
		n := 0
		for ; mask > 0; mask &= mask - 1 {
			n++
		}
		return n, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: channels %q", ErrInvalidArgs, v)
	}
	return n, nil
}

// unused returns error if some parameters were not consumed.
func (a *args) unused() error {
	var keys []string
	for k := range a.named {
		if !a.used[k] {
			keys = append(keys, k)
		}
	}
	if len(keys) > 0 {
		sort.Strings(keys)
		return fmt.Errorf("%w: unknown parameters %v", ErrInvalidArgs, keys)
	}
	if a.usedPos < len(a.positional) {
		return fmt.Errorf("%w: unexpected values %v", ErrInvalidArgs, a.positional[a.usedPos:])
	}
	return nil
}
