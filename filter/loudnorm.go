package filter

import (
	"fmt"
	"io"
	"math"

	"github.com/pipelined/audiomix"
)

func init() {
	register("loudnorm", func() filter { return &loudnorm{} })
}

const (
	// gating block length and step in seconds.
	loudnessBlock = 0.4
	loudnessStep  = 0.1
	absoluteGate  = -70.0
	relativeGate  = -10.0
)

// loudnorm measures integrated loudness of the whole input and applies a
// single gain so it matches the target. Gain is limited so peaks stay
// below the true peak ceiling. Loudness is approximated with gated mean
// square without K-weighting, loudness range is accepted but not
// enforced.
type loudnorm struct {
	target   float64
	peak     float64
	lra      float64
	dualMono bool

	format  audiomix.Format
	buf     audiomix.Buffer
	read    bool
	gain    float64
	emitted int
}

func (l *loudnorm) init(a args) (err error) {
	if l.target, err = a.float(-24, "I", "i"); err != nil {
		return err
	}
	if l.peak, err = a.float(-2, "TP", "tp"); err != nil {
		return err
	}
	if l.lra, err = a.float(7, "LRA", "lra"); err != nil {
		return err
	}
	switch v := a.string("false", "dual_mono"); v {
	case "false", "0":
	case "true", "1":
		l.dualMono = true
	default:
		return fmt.Errorf("%w: dual_mono=%q", ErrInvalidArgs, v)
	}
	if l.target < -70 || l.target > -5 || l.peak < -9 || l.peak > 0 || l.lra < 1 || l.lra > 50 {
		return fmt.Errorf("%w: loudnorm I=%v TP=%v LRA=%v", ErrInvalidArgs, l.target, l.peak, l.lra)
	}
	return nil
}

func (l *loudnorm) pads() (int, int) { return 1, 1 }

func (l *loudnorm) configure(n *Node) error {
	l.format = n.input(0)
	n.format = l.format
	return nil
}

func (l *loudnorm) pull(n *Node, _ int) (*audiomix.Frame, error) {
	for !l.read {
		f, err := n.pullInput(0)
		if isEOF(err) {
			l.read = true
			l.gain = l.measureGain()
			break
		}
		if err != nil {
			return nil, err
		}
		l.buf = l.buf.Append(f.Buffer)
	}
	if l.emitted >= l.buf.Size() {
		return nil, io.EOF
	}
	b := l.buf.Slice(l.emitted, defaultPacketSize)
	for c := range b {
		for i := range b[c] {
			b[c][i] *= l.gain
		}
	}
	f := &audiomix.Frame{Buffer: b, PTS: int64(l.emitted), SampleRate: l.format.SampleRate}
	l.emitted += b.Size()
	return f, nil
}

// measureGain returns linear gain to apply to the buffered signal.
func (l *loudnorm) measureGain() float64 {
	loudness, ok := integratedLoudness(l.buf, l.format.SampleRate)
	if !ok {
		return 1
	}
	if l.dualMono && l.format.NumChannels == 1 {
		loudness += 10 * math.Log10(2)
	}
	gainDB := l.target - loudness
	if p := peak(l.buf); p > 0 {
		if limit := l.peak - 20*math.Log10(p); gainDB > limit {
			gainDB = limit
		}
	}
	return math.Pow(10, gainDB/20)
}

// integratedLoudness returns gated loudness in LUFS. False is returned if
// the signal is silent.
func integratedLoudness(b audiomix.Buffer, sampleRate int) (float64, bool) {
	block := int(loudnessBlock * float64(sampleRate))
	step := int(loudnessStep * float64(sampleRate))
	size := b.Size()
	if size == 0 || block == 0 || step == 0 {
		return 0, false
	}
	if size < block {
		block = size
	}
	var powers []float64
	for start := 0; start+block <= size; start += step {
		var sum float64
		for c := range b {
			for _, v := range b[c][start : start+block] {
				sum += v * v
			}
		}
		powers = append(powers, sum/float64(block))
	}
	gated := gate(powers, absoluteGate)
	if len(gated) == 0 {
		return 0, false
	}
	gated = gate(gated, lufs(mean(gated))+relativeGate)
	if len(gated) == 0 {
		return 0, false
	}
	return lufs(mean(gated)), true
}

func gate(powers []float64, threshold float64) []float64 {
	var out []float64
	for _, p := range powers {
		if p > 0 && lufs(p) > threshold {
			out = append(out, p)
		}
	}
	return out
}

func lufs(power float64) float64 {
	return -0.691 + 10*math.Log10(power)
}

func mean(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

func peak(b audiomix.Buffer) float64 {
	var p float64
	for c := range b {
		for _, v := range b[c] {
			if a := math.Abs(v); a > p {
				p = a
			}
		}
	}
	return p
}
