// Package bytesize parses and renders human-readable byte sizes such as
// "500MB", "2Gi" or plain integers. Config files use it for size floors and
// ceilings.
package bytesize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type ByteSize uint64

const (
	B  ByteSize = 1
	KB ByteSize = 1000
	MB ByteSize = 1000 * KB
	GB ByteSize = 1000 * MB
	TB ByteSize = 1000 * GB

	KiB ByteSize = 1024
	MiB ByteSize = 1024 * KiB
	GiB ByteSize = 1024 * MiB
	TiB ByteSize = 1024 * GiB
)

var sizePattern = regexp.MustCompile(`(?i)^\s*(\d+(?:\.\d+)?)\s*([a-z]*)\s*$`)

var unitMultipliers = map[string]ByteSize{
	"": B, "b": B,
	"k": KB, "kb": KB,
	"m": MB, "mb": MB,
	"g": GB, "gb": GB,
	"t": TB, "tb": TB,
	"ki": KiB, "kib": KiB,
	"mi": MiB, "mib": MiB,
	"gi": GiB, "gib": GiB,
	"ti": TiB, "tib": TiB,
}

// Parse converts strings like "500MB", "1.5Gi" or "1048576" into a ByteSize.
// Decimal units multiply by 1000, binary units by 1024.
func Parse(s string) (ByteSize, error) {
	if strings.TrimSpace(s) == "" {
		return 0, fmt.Errorf("empty byte size")
	}

	matches := sizePattern.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("invalid byte size %q", s)
	}
	numStr := matches[1]
	unit := strings.ToLower(matches[2])

	multiplier, ok := unitMultipliers[unit]
	if !ok {
		return 0, fmt.Errorf("unknown byte size unit %q", matches[2])
	}

	if strings.Contains(numStr, ".") {
		num, err := strconv.ParseFloat(numStr, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number in byte size %q", s)
		}
		return ByteSize(num * float64(multiplier)), nil
	}

	num, err := strconv.ParseUint(numStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number in byte size %q", s)
	}
	return ByteSize(num) * multiplier, nil
}

// UnmarshalText lets ByteSize fields decode from strings in YAML and env
// values.
func (b *ByteSize) UnmarshalText(text []byte) error {
	size, err := Parse(string(text))
	if err != nil {
		return err
	}
	*b = size
	return nil
}

// MarshalText renders an exact form, preferring round unit multiples, so a
// written config file reparses to the same value.
func (b ByteSize) MarshalText() ([]byte, error) {
	if b == 0 {
		return []byte("0B"), nil
	}
	units := []struct {
		mult   ByteSize
		suffix string
	}{
		{TiB, "TiB"}, {TB, "TB"},
		{GiB, "GiB"}, {GB, "GB"},
		{MiB, "MiB"}, {MB, "MB"},
		{KiB, "KiB"}, {KB, "KB"},
	}
	for _, u := range units {
		if b >= u.mult && b%u.mult == 0 {
			return []byte(fmt.Sprintf("%d%s", uint64(b/u.mult), u.suffix)), nil
		}
	}
	return []byte(fmt.Sprintf("%dB", uint64(b))), nil
}

func (b ByteSize) String() string {
	switch {
	case b >= TiB:
		return trimZeros(float64(b)/float64(TiB)) + "TiB"
	case b >= GiB:
		return trimZeros(float64(b)/float64(GiB)) + "GiB"
	case b >= MiB:
		return trimZeros(float64(b)/float64(MiB)) + "MiB"
	case b >= KiB:
		return trimZeros(float64(b)/float64(KiB)) + "KiB"
	default:
		return fmt.Sprintf("%dB", uint64(b))
	}
}

func trimZeros(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

func (b ByteSize) Uint64() uint64 { return uint64(b) }

func (b ByteSize) Int64() int64 { return int64(b) }
