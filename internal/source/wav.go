// Package source decodes raw recordings into channels.
package source

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/youpy/go-wav"

	"github.com/RMahshie/sensorscope/pkg/models"
)

// Metadata describes a recording beyond what its container header carries
type Metadata struct {
	Name      string
	Class     models.SensorClass
	StartTime time.Time
	// ChannelNames names channels in container order. Missing names default to <Name>/<index>.
	ChannelNames []string
	// Scale converts normalized container values into physical units. Zero means 1.
	Scale float64
	Unit  string
}

// DecodeWAV splits an interleaved PCM or IEEE float WAV recording into one
// channel per container channel. Any channel count is accepted.
func DecodeWAV(data []byte, meta Metadata) ([]models.Channel, error) {
	reader := wav.NewReader(bytes.NewReader(data))

	format, err := reader.Format()
	if err != nil {
		return nil, fmt.Errorf("failed to read wav format: %w", err)
	}
	if format.NumChannels == 0 || format.SampleRate == 0 {
		return nil, fmt.Errorf("wav header declares %d channels at %d Hz", format.NumChannels, format.SampleRate)
	}

	decode, err := sampleDecoder(format)
	if err != nil {
		return nil, err
	}
	numChannels := int(format.NumChannels)
	width := int(format.BitsPerSample) / 8
	frameSize := numChannels * width
	if int(format.BlockAlign) != frameSize {
		return nil, fmt.Errorf("wav block align %d does not match %d channels of %d bits", format.BlockAlign, numChannels, format.BitsPerSample)
	}

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read wav samples: %w", err)
	}
	// the chunk size may count one pad byte the file does not carry
	if len(raw)+1 < int(reader.Size) {
		return nil, fmt.Errorf("wav data chunk truncated: header declares %d bytes, found %d", reader.Size, len(raw))
	}

	scale := meta.Scale
	if scale == 0 {
		scale = 1
	}

	frames := len(raw) / frameSize
	traces := make([][]float64, numChannels)
	for c := range traces {
		traces[c] = make([]float64, frames)
	}
	for i := 0; i < frames; i++ {
		frame := raw[i*frameSize : (i+1)*frameSize]
		for c := 0; c < numChannels; c++ {
			traces[c][i] = decode(frame[c*width:(c+1)*width]) * scale
		}
	}

	channels := make([]models.Channel, numChannels)
	for c := range channels {
		channels[c] = models.Channel{
			Name:       channelName(meta, c),
			Class:      meta.Class,
			SampleRate: float64(format.SampleRate),
			StartTime:  meta.StartTime,
			Unit:       meta.Unit,
			Samples:    traces[c],
		}
	}

	return channels, nil
}

// sampleDecoder returns a function mapping one little-endian sample to [-1, 1)
func sampleDecoder(format *wav.WavFormat) (func([]byte) float64, error) {
	switch format.AudioFormat {
	case wav.AudioFormatPCM:
		switch format.BitsPerSample {
		case 8:
			// 8-bit PCM is unsigned
			return func(b []byte) float64 { return (float64(b[0]) - 128) / 128 }, nil
		case 16:
			return func(b []byte) float64 { return float64(int16(binary.LittleEndian.Uint16(b))) / (1 << 15) }, nil
		case 24:
			return func(b []byte) float64 {
				v := int32(uint32(b[0])<<8|uint32(b[1])<<16|uint32(b[2])<<24) >> 8
				return float64(v) / (1 << 23)
			}, nil
		case 32:
			return func(b []byte) float64 { return float64(int32(binary.LittleEndian.Uint32(b))) / (1 << 31) }, nil
		}
	case wav.AudioFormatIEEEFloat:
		switch format.BitsPerSample {
		case 32:
			return func(b []byte) float64 { return float64(math.Float32frombits(binary.LittleEndian.Uint32(b))) }, nil
		case 64:
			return func(b []byte) float64 { return math.Float64frombits(binary.LittleEndian.Uint64(b)) }, nil
		}
	}
	return nil, fmt.Errorf("unsupported wav encoding: format %d with %d bits per sample", format.AudioFormat, format.BitsPerSample)
}

func channelName(meta Metadata, i int) string {
	if i < len(meta.ChannelNames) && meta.ChannelNames[i] != "" {
		return meta.ChannelNames[i]
	}
	name := meta.Name
	if name == "" {
		name = "channel"
	}
	return fmt.Sprintf("%s/%d", name, i)
}

// RateFromIncrement turns a waveform sample increment (seconds) into a
// sampling rate rounded to three decimals
func RateFromIncrement(increment float64) (float64, error) {
	if increment <= 0 || math.IsNaN(increment) || math.IsInf(increment, 0) {
		return 0, fmt.Errorf("sample increment must be > 0: %v", increment)
	}
	return math.Round(1/increment*1000) / 1000, nil
}
