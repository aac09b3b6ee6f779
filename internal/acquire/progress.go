package acquire

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Themolx/Privateer/internal/fetch"
	"github.com/Themolx/Privateer/internal/model"
)

var (
	rePct   = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)%`)
	reSpeed = regexp.MustCompile(`\bat\s+([^\s]+)`) // yt-dlp [download] ... at X
	reETA   = regexp.MustCompile(`\bETA\s+([0-9:]+)`)
	reOf    = regexp.MustCompile(`\bof\s+([^\s]+)`)
	reFF    = regexp.MustCompile(`\bspeed=\s*([^\s]+)`) // ffmpeg speed=x during muxing
	reFFBr  = regexp.MustCompile(`\bbitrate=\s*([0-9.]+)\s*([kKmMgG])bits/s`)
	reRes   = regexp.MustCompile(`\b([0-9]{3,5})x([0-9]{3,5})\b`)
	reRate  = regexp.MustCompile(`^([0-9]+(?:\.[0-9]+)?)\s*([kmgt]?i?b)/s$`)
)

// liveProgress renders one job's fetch as a single updating terminal line,
// fed by the raw output lines of the fetch tool.
type liveProgress struct {
	enabled bool

	jobID     string
	kind      string
	name      string
	completed int
	total     int
	retrying  int
	failed    int

	mu      sync.Mutex
	phase   string
	quality string
	pct     string
	speed   string
	rate    string
	rateMbp float64
	eta     string
	totalSz string
	last    string

	stop chan struct{}
}

func newLiveProgress(enabled bool, job model.Job, completed, total, retrying, failed int) *liveProgress {
	return &liveProgress{
		enabled:   enabled,
		jobID:     job.ID,
		kind:      string(job.Kind),
		name:      job.DisplayName,
		completed: completed,
		total:     total,
		retrying:  retrying,
		failed:    failed,
		phase:     "starting",
		stop:      make(chan struct{}),
	}
}

func (p *liveProgress) Start() {
	if !p.enabled {
		return
	}
	go func() {
		t := time.NewTicker(700 * time.Millisecond)
		defer t.Stop()
		for {
			select {
			case <-p.stop:
				return
			case <-t.C:
				fmt.Printf("\r\033[2K%s", p.render())
			}
		}
	}()
}

func (p *liveProgress) Stop(final string) {
	if !p.enabled {
		return
	}
	close(p.stop)
	fmt.Printf("\r\033[2K%s\n", final)
}

func (p *liveProgress) SetPhase(phase string) {
	if !p.enabled {
		return
	}
	p.mu.Lock()
	p.phase = phase
	p.mu.Unlock()
}

// Handle consumes one tool output line. Stdout carries download progress;
// stderr carries muxer chatter with resolution and bitrate hints.
func (p *liveProgress) Handle(stream fetch.OutputStream, line string) {
	if !p.enabled {
		return
	}
	l := strings.TrimSpace(line)
	if l == "" {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.last = l
	if strings.HasPrefix(l, "[download]") {
		p.phase = "fetching"
		if m := rePct.FindStringSubmatch(l); len(m) > 1 {
			p.pct = m[1] + "%"
		}
		if m := reSpeed.FindStringSubmatch(l); len(m) > 1 {
			p.speed = m[1]
			if mbp := parseRateToMbp(m[1]); mbp > 0 {
				p.rate = m[1]
				p.rateMbp = mbp
			}
		}
		if m := reETA.FindStringSubmatch(l); len(m) > 1 {
			p.eta = m[1]
		}
		if m := reOf.FindStringSubmatch(l); len(m) > 1 {
			p.totalSz = m[1]
		}
	} else if strings.HasPrefix(l, "[") && p.phase == "starting" {
		p.phase = "preparing"
	}

	if stream == fetch.StreamStderr {
		if p.quality == "" {
			if m := reRes.FindStringSubmatch(l); len(m) > 2 {
				if w, errW := strconv.Atoi(m[1]); errW == nil {
					if h, errH := strconv.Atoi(m[2]); errH == nil {
						p.quality = resolutionToQuality(w, h)
					}
				}
			}
		}
		if m := reFFBr.FindStringSubmatch(l); len(m) > 2 {
			p.rate, p.rateMbp = ffmpegBitrateToDisplay(m[1], m[2])
		}
		if m := reFF.FindStringSubmatch(l); len(m) > 1 {
			p.speed = m[1]
			if p.phase == "starting" || p.phase == "preparing" {
				p.phase = "fetching"
			}
		}
	}
}

func (p *liveProgress) render() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	name := p.name
	if len(name) > 52 {
		name = name[:52] + "..."
	}

	parts := []string{fmt.Sprintf("[%s] %s", shortID(p.jobID), p.kind), p.phase}
	if p.quality != "" {
		parts = append(parts, p.quality)
	}
	if p.total > 0 {
		parts = append(parts, fmt.Sprintf("completed %d/%d", p.completed, p.total))
	}
	if p.retrying > 0 || p.failed > 0 {
		parts = append(parts, fmt.Sprintf("retry %d fail %d", p.retrying, p.failed))
	}
	if p.pct != "" {
		parts = append(parts, p.pct)
	}
	if p.speed != "" {
		parts = append(parts, p.speed)
	}
	if p.rate != "" && p.rate != p.speed {
		parts = append(parts, p.rate)
	}
	if p.eta != "" {
		parts = append(parts, "ETA "+p.eta)
	}
	if p.totalSz != "" {
		parts = append(parts, p.totalSz)
	}
	parts = append(parts, "| "+name)
	return strings.Join(parts, "  ")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func ffmpegBitrateToDisplay(num, unit string) (string, float64) {
	f, err := strconv.ParseFloat(num, 64)
	if err != nil || f <= 0 {
		return "", 0
	}
	switch strings.ToUpper(strings.TrimSpace(unit)) {
	case "K":
		mbps := f / 1000.0
		return fmt.Sprintf("%.2f Mb/s", mbps), mbps
	case "M":
		return fmt.Sprintf("%.2f Mb/s", f), f
	case "G":
		mbps := f * 1000.0
		return fmt.Sprintf("%.2f Mb/s", mbps), mbps
	default:
		return "", 0
	}
}

func resolutionToQuality(width, height int) string {
	_ = width
	switch {
	case height >= 4320:
		return "8K"
	case height >= 2160:
		return "4K"
	default:
		return fmt.Sprintf("%dp", height)
	}
}

// parseRateToMbp converts yt-dlp style throughput (12.3MiB/s, 700KiB/s) to
// megabits per second for the dashboard's aggregate rate.
func parseRateToMbp(s string) float64 {
	x := strings.TrimSpace(strings.ToLower(s))
	m := reRate.FindStringSubmatch(x)
	if len(m) < 3 {
		return 0
	}
	val, err := strconv.ParseFloat(m[1], 64)
	if err != nil || val <= 0 {
		return 0
	}
	var mbPerSec float64
	switch m[2] {
	case "kib":
		mbPerSec = val * 1024 / 1_000_000
	case "kb":
		mbPerSec = val * 1000 / 1_000_000
	case "mib":
		mbPerSec = val * 1024 * 1024 / 1_000_000
	case "mb":
		mbPerSec = val
	case "gib":
		mbPerSec = val * 1024 * 1024 * 1024 / 1_000_000
	case "gb":
		mbPerSec = val * 1000
	default:
		return 0
	}
	return mbPerSec * 8
}
