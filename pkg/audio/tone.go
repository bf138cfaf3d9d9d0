package audio

import (
	"encoding/binary"
	"math"
	"time"
)

// segment is one piece of a synthesized tone. Zero frequencies are silence.
type segment struct {
	freqs    []float64
	duration time.Duration
	decay    bool
}

const amplitude = 0.6 * math.MaxInt16

var tones = map[string][]segment{
	// Urgent double beep, repeated
	"default": {
		{freqs: []float64{880}, duration: 150 * time.Millisecond},
		{duration: 80 * time.Millisecond},
		{freqs: []float64{880}, duration: 150 * time.Millisecond},
		{duration: 80 * time.Millisecond},
		{freqs: []float64{1046}, duration: 250 * time.Millisecond},
		{duration: 400 * time.Millisecond},
	},
	"notification": {
		{freqs: []float64{1320, 1980}, duration: 600 * time.Millisecond, decay: true},
		{duration: 500 * time.Millisecond},
	},
	// Two-tone ring
	"phone": {
		{freqs: []float64{440, 480}, duration: 1 * time.Second},
		{duration: 1 * time.Second},
	},
}

// Synthesize renders the named built-in tone in format. Unknown names render
// the default tone.
func Synthesize(name string, format Format) Sound {
	segs, ok := tones[name]
	if !ok {
		name = "default"
		segs = tones[name]
	}
	if format.Channels < 1 {
		format.Channels = 1
	}
	format.BitDepth = 16

	var pcm []byte
	for _, seg := range segs {
		pcm = appendSegment(pcm, seg, format)
	}
	return Sound{Name: name, Format: format, PCM: pcm}
}

func appendSegment(pcm []byte, seg segment, format Format) []byte {
	n := int(seg.duration.Seconds() * float64(format.SampleRate))
	frame := make([]byte, 2*format.Channels)

	for i := 0; i < n; i++ {
		var v float64
		if len(seg.freqs) > 0 {
			t := float64(i) / float64(format.SampleRate)
			for _, f := range seg.freqs {
				v += math.Sin(2 * math.Pi * f * t)
			}
			v /= float64(len(seg.freqs))

			env := 1.0
			if seg.decay {
				env = math.Exp(-4 * float64(i) / float64(n))
			}
			// 5 ms ramps avoid clicks at segment edges
			ramp := int(0.005 * float64(format.SampleRate))
			if i < ramp {
				env *= float64(i) / float64(ramp)
			} else if n-i < ramp {
				env *= float64(n-i) / float64(ramp)
			}
			v *= env * amplitude
		}

		sample := int16(v)
		for ch := 0; ch < format.Channels; ch++ {
			binary.LittleEndian.PutUint16(frame[2*ch:], uint16(sample))
		}
		pcm = append(pcm, frame...)
	}
	return pcm
}
