package mp3

import (
	"bytes"
	"encoding/binary"
	"os"

	"github.com/viert/lame"

	"github.com/pipelined/audiomix"
)

// Encoder defaults.
const (
	DefaultBitRate = 160000
	DefaultQuality = 2
)

// Output encodes frames into mp3 file.
type Output struct {
	f       *os.File
	wr      *lame.LameWriter
	encoded bytes.Buffer
	format  audiomix.Format
	pending int64
	flushed bool
}

// Create creates mp3 file. Bit rate is set in bits per second.
func Create(path string, f audiomix.Format, bitRate, quality int) (*Output, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	f.SampleFormat = audiomix.SampleFormatS16
	o := Output{
		f:      file,
		format: f,
	}
	o.wr = lame.NewWriter(&o.encoded)
	o.wr.Encoder.SetBitrate(bitRate / 1000)
	o.wr.Encoder.SetQuality(quality)
	o.wr.Encoder.SetNumChannels(f.NumChannels)
	o.wr.Encoder.SetInSamplerate(f.SampleRate)
	if f.NumChannels == 1 {
		o.wr.Encoder.SetMode(lame.MONO)
	} else {
		o.wr.Encoder.SetMode(lame.JOINT_STEREO)
	}
	o.wr.Encoder.SetVBR(lame.VBR_RH)
	o.wr.Encoder.InitParams()
	return &o, nil
}

// Format returns format of frames encoder expects.
func (o *Output) Format() audiomix.Format {
	return o.format
}

// FrameSize returns number of samples per mp3 frame.
func (o *Output) FrameSize() int {
	return FrameSize
}

// WriteHeader does nothing, mp3 stream has no header.
func (o *Output) WriteHeader() error {
	return nil
}

// Encode passes frame to lame and returns encoded bytes if there are any.
// Lame buffers samples internally, so packet duration is the number of
// samples passed since the last packet. First nil frame flushes encoder.
func (o *Output) Encode(f *audiomix.Frame) (*audiomix.Packet, error) {
	if f == nil {
		if o.flushed {
			return nil, nil
		}
		o.flushed = true
		if err := o.wr.Close(); err != nil {
			return nil, err
		}
		return o.packet(), nil
	}

	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, f.Ints16()); err != nil {
		return nil, err
	}
	if _, err := o.wr.Write(buf.Bytes()); err != nil {
		return nil, err
	}
	o.pending += int64(f.NumSamples())
	return o.packet(), nil
}

func (o *Output) packet() *audiomix.Packet {
	if o.encoded.Len() == 0 {
		return nil
	}
	p := &audiomix.Packet{
		Data:     append([]byte(nil), o.encoded.Bytes()...),
		Duration: o.pending,
	}
	o.encoded.Reset()
	o.pending = 0
	return p
}

// WritePacket writes encoded bytes to file.
func (o *Output) WritePacket(p *audiomix.Packet) error {
	_, err := o.f.Write(p.Data)
	return err
}

// WriteTrailer does nothing, encoder is flushed with nil frame.
func (o *Output) WriteTrailer() error {
	return nil
}

// Close closes the file. Encoder is closed if it wasn't flushed.
func (o *Output) Close() error {
	var errs audiomix.Errors
	if !o.flushed {
		o.flushed = true
		if err := o.wr.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := o.f.Close(); err != nil {
		errs = append(errs, err)
	}
	return errs.Ret()
}
