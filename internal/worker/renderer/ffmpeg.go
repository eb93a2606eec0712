package renderer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"audiowave/internal/models"
	"audiowave/internal/pkg/errors"
	"audiowave/internal/pkg/logger"
)

var commandContext = exec.CommandContext

const stderrTailLines = 20

var durationPattern = regexp.MustCompile(`Duration:\s*(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)

// FFmpeg renders with a local ffmpeg binary.
type FFmpeg struct {
	Binary string
	// FontFile, when set, is used for every overlay banner instead of a
	// fontconfig lookup by family.
	FontFile string
	log      *logger.Logger
}

// NewFFmpeg returns an FFmpeg renderer. An empty binary means "ffmpeg".
func NewFFmpeg(binary string, log *logger.Logger) *FFmpeg {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	if log == nil {
		log = logger.Discard()
	}
	return &FFmpeg{Binary: binary, log: log.WithComponent("renderer.ffmpeg")}
}

func (f *FFmpeg) Name() string { return "ffmpeg" }

// Render runs ffmpeg for job, reporting progress from its -progress stream.
func (f *FFmpeg) Render(ctx context.Context, job Job, onProgress ProgressFunc) (string, error) {
	if err := job.Validate(); err != nil {
		return "", err
	}
	args, err := f.BuildArgs(job)
	if err != nil {
		return "", err
	}

	log := f.log.FromContext(ctx)
	log.Debug("starting ffmpeg", "args", strings.Join(args, " "))

	cmd := commandContext(ctx, f.Binary, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", errors.Render(err, "ffmpeg stdout pipe")
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", errors.Render(err, "ffmpeg stderr pipe")
	}
	if err := cmd.Start(); err != nil {
		return "", errors.Render(err, "start ffmpeg")
	}

	tracker := &progressTracker{onProgress: onProgress}
	if job.DurationHint != nil && *job.DurationHint > 0 {
		tracker.setDuration(*job.DurationHint)
	}

	var wg sync.WaitGroup
	var tail []string
	wg.Add(1)
	go func() {
		defer wg.Done()
		tail = tracker.scanStderr(stderr)
	}()
	tracker.scanProgress(stdout)
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return "", errors.WrapWithCode(ctx.Err(), errors.CodeCanceled, "renderer.render", "render canceled")
		}
		msg := "ffmpeg failed"
		if len(tail) > 0 {
			msg = "ffmpeg failed: " + tail[len(tail)-1]
		}
		return "", errors.Render(err, msg).
			WithField("output_path", job.OutputPath).
			WithField("stderr", strings.Join(tail, "\n"))
	}

	if err := verifyOutput(job.OutputPath); err != nil {
		return "", err
	}
	return job.OutputPath, nil
}

// BuildArgs returns the ffmpeg arguments for job.
func (f *FFmpeg) BuildArgs(job Job) ([]string, error) {
	graph, err := f.filterGraph(job)
	if err != nil {
		return nil, err
	}
	return []string{
		"-hide_banner", "-nostats", "-y",
		"-loop", "1", "-i", job.BackgroundImagePath,
		"-i", job.AudioPath,
		"-filter_complex", graph,
		"-map", "[out]", "-map", "1:a",
		"-c:v", "libx264", "-preset", "veryfast", "-tune", "stillimage",
		"-c:a", "aac", "-b:a", "192k",
		"-shortest", "-movflags", "+faststart",
		"-progress", "pipe:1",
		job.OutputPath,
	}, nil
}

func (f *FFmpeg) filterGraph(job Job) (string, error) {
	spec := job.spectrum()
	w, err := spec.dimension(spec.Width)
	if err != nil {
		return "", errors.Validation(err.Error())
	}
	h, err := spec.dimension(spec.Height)
	if err != nil {
		return "", errors.Validation(err.Error())
	}

	freq := "[1:a]showfreqs=mode=bar:ascale=log:fscale=log:colors=white,format=rgba,colorkey=black:0.1:0.0"
	if spec.Rotation == RotationDown {
		freq += ",vflip"
	}

	var b strings.Builder
	b.WriteString(freq)
	b.WriteString("[freq];")
	fmt.Fprintf(&b, "[freq][0:v]scale2ref=w=%s:h=%s[freqs][bg];", w.expr("main_w"), h.expr("main_h"))
	b.WriteString("[bg][freqs]overlay=x=(main_w-overlay_w)/2:y=main_h-overlay_h:shortest=1")
	for _, layer := range job.Overlay.Layers() {
		b.WriteString(",")
		b.WriteString(f.drawtext(layer))
	}
	b.WriteString(",scale=trunc(iw/2)*2:trunc(ih/2)*2,format=yuv420p[out]")
	return b.String(), nil
}

func (d dimension) expr(ref string) string {
	if d.pixels > 0 {
		return strconv.Itoa(d.pixels)
	}
	return ref + "*" + strconv.FormatFloat(d.fraction, 'f', -1, 64)
}

func (f *FFmpeg) drawtext(l models.Layer) string {
	x, y := gravityPosition(l.Placement)
	opts := []string{"text=" + quoteFilterValue(l.Banner.Text)}
	if f.FontFile != "" {
		opts = append(opts, "fontfile="+quoteFilterValue(f.FontFile))
	} else if l.Banner.FontFamily != "" {
		opts = append(opts, "font="+quoteFilterValue(fontPattern(l.Banner)))
	}
	opts = append(opts,
		"fontsize="+strconv.Itoa(l.Banner.FontSize),
		"fontcolor="+ffmpegColor(l.Banner.Color),
	)
	if l.Banner.Background != "" {
		opts = append(opts, "box=1", "boxcolor="+ffmpegColor(l.Banner.Background), "boxborderw=12")
	}
	opts = append(opts, "x="+x, "y="+y)
	return "drawtext=" + strings.Join(opts, ":")
}

// fontPattern builds a fontconfig pattern such as "Arial:style=Bold Italic".
func fontPattern(b models.Banner) string {
	var style []string
	if b.FontWeight != "" && !strings.EqualFold(b.FontWeight, "normal") {
		style = append(style, titleCase(b.FontWeight))
	}
	if b.FontStyle != "" && !strings.EqualFold(b.FontStyle, "normal") {
		style = append(style, titleCase(b.FontStyle))
	}
	if len(style) == 0 {
		return b.FontFamily
	}
	return b.FontFamily + ":style=" + strings.Join(style, " ")
}

func titleCase(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// gravityPosition maps a placement to drawtext x/y expressions. Offsets are
// fractions of the frame measured from the gravity edge.
func gravityPosition(p models.Placement) (string, string) {
	fx := strconv.FormatFloat(p.X, 'f', -1, 64)
	fy := strconv.FormatFloat(p.Y, 'f', -1, 64)

	x := "w*" + fx
	y := "h*" + fy
	g := strings.ToLower(p.Gravity)
	switch {
	case strings.HasSuffix(g, "east"):
		x = "w-tw-w*" + fx
	case g == "north" || g == "south" || g == "center":
		x = "(w-tw)/2+w*" + fx
	}
	switch {
	case strings.HasPrefix(g, "south"):
		y = "h-th-h*" + fy
	case g == "east" || g == "west" || g == "center":
		y = "(h-th)/2+h*" + fy
	}
	return x, y
}

// ffmpegColor turns "#1DB954" into "0x1DB954"; named colors pass through.
func ffmpegColor(c string) string {
	if strings.HasPrefix(c, "#") {
		return "0x" + strings.TrimPrefix(c, "#")
	}
	return c
}

var drawtextEscaper = strings.NewReplacer(`\`, `\\`, `:`, `\:`, `'`, `\'`, `%`, `\%`)

// quoteFilterValue escapes v for a drawtext option and then quotes it for
// the filtergraph parser.
func quoteFilterValue(v string) string {
	return "'" + strings.ReplaceAll(drawtextEscaper.Replace(v), "'", `'\''`) + "'"
}

// progressTracker converts ffmpeg's -progress key=value stream into
// percentages.
type progressTracker struct {
	onProgress ProgressFunc

	mu       sync.Mutex
	duration float64
}

func (t *progressTracker) setDuration(d float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.duration == 0 && d > 0 {
		t.duration = d
	}
}

func (t *progressTracker) total() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.duration
}

func (t *progressTracker) scanProgress(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok {
			continue
		}
		switch key {
		case "out_time_us", "out_time_ms":
			us, err := strconv.ParseInt(value, 10, 64)
			if err != nil || us < 0 {
				continue
			}
			if total := t.total(); total > 0 {
				t.emit(float64(us) / 1e6 / total * 100)
			}
		case "progress":
			if value == "end" {
				t.emit(100)
			}
		}
	}
	_, _ = io.Copy(io.Discard, r)
}

// scanStderr picks the input duration out of ffmpeg's banner and keeps the
// last lines for error reporting.
func (t *progressTracker) scanStderr(r io.Reader) []string {
	tail := make([]string, 0, stderrTailLines)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if d, ok := parseDuration(line); ok {
			t.setDuration(d)
		}
		if len(tail) == stderrTailLines {
			tail = tail[1:]
		}
		tail = append(tail, line)
	}
	_, _ = io.Copy(io.Discard, r)
	return tail
}

func (t *progressTracker) emit(p float64) {
	if t.onProgress != nil {
		t.onProgress(clamp(p))
	}
}

func parseDuration(line string) (float64, bool) {
	m := durationPattern.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	h, _ := strconv.Atoi(m[1])
	mins, _ := strconv.Atoi(m[2])
	sec, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return 0, false
	}
	return float64(h*3600+mins*60) + sec, true
}
