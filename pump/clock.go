package pump

import "github.com/pipelined/audiomix"

// Clock holds output timestamps in samples.
type Clock struct {
	// FramePTS is presentation time of the next frame passed to encoder.
	FramePTS int64
	// PacketPTS is presentation time of the next encoded packet.
	PacketPTS int64
}

func (c *Clock) stampFrame(f *audiomix.Frame) {
	f.PTS = c.FramePTS
	c.FramePTS += int64(f.NumSamples())
}

func (c *Clock) stampPacket(p *audiomix.Packet) {
	p.PTS = c.PacketPTS
	p.DTS = c.PacketPTS
	c.PacketPTS += p.Duration
}
