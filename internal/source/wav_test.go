package source

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/youpy/go-wav"

	"github.com/RMahshie/sensorscope/pkg/models"
)

func encodeWAV(t *testing.T, rate uint32, left, right []int) []byte {
	t.Helper()

	samples := make([]wav.Sample, len(left))
	for i := range left {
		samples[i] = wav.Sample{Values: [2]int{left[i], right[i]}}
	}

	buf := &bytes.Buffer{}
	w := wav.NewWriter(buf, uint32(len(samples)), 2, rate, 16)
	require.NoError(t, w.WriteSamples(samples))
	return buf.Bytes()
}

// rawWAV lays out a canonical RIFF/WAVE file. dataSize is written to the data
// chunk header as given so callers can declare more bytes than they pass.
func rawWAV(audioFormat, channels, bits uint16, rate uint32, dataSize uint32, payload []byte) []byte {
	buf := &bytes.Buffer{}
	le := binary.LittleEndian
	buf.WriteString("RIFF")
	_ = binary.Write(buf, le, uint32(36)+dataSize)
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(buf, le, uint32(16))
	_ = binary.Write(buf, le, audioFormat)
	_ = binary.Write(buf, le, channels)
	_ = binary.Write(buf, le, rate)
	_ = binary.Write(buf, le, rate*uint32(channels)*uint32(bits/8))
	_ = binary.Write(buf, le, channels*(bits/8))
	_ = binary.Write(buf, le, bits)
	buf.WriteString("data")
	_ = binary.Write(buf, le, dataSize)
	buf.Write(payload)
	return buf.Bytes()
}

func pcm16(frames [][]int16) []byte {
	buf := &bytes.Buffer{}
	for _, f := range frames {
		_ = binary.Write(buf, binary.LittleEndian, f)
	}
	return buf.Bytes()
}

func TestDecodeWAVFourChannels(t *testing.T) {
	payload := pcm16([][]int16{
		{0, 8192, -16384, 100},
		{16384, -8192, 32767, 200},
		{-32768, 0, 0, 300},
	})
	data := rawWAV(wav.AudioFormatPCM, 4, 16, 500, uint32(len(payload)), payload)

	channels, err := DecodeWAV(data, Metadata{Name: "bay_eh", Class: models.ClassElectromagnetic, ChannelNames: []string{"EH-1", "EH-2", "EH-3", "EH-4"}})
	require.NoError(t, err)
	require.Len(t, channels, 4)

	for i, ch := range channels {
		assert.Equal(t, []string{"EH-1", "EH-2", "EH-3", "EH-4"}[i], ch.Name)
		assert.Equal(t, 500.0, ch.SampleRate)
		assert.Len(t, ch.Samples, 3)
	}
	assert.InDeltaSlice(t, []float64{0, 0.5, -1}, channels[0].Samples, 1e-12)
	assert.InDeltaSlice(t, []float64{0.25, -0.25, 0}, channels[1].Samples, 1e-12)
	assert.InDelta(t, 32767.0/32768, channels[2].Samples[1], 1e-12)
	assert.InDelta(t, 300.0/32768, channels[3].Samples[2], 1e-12)
}

func TestDecodeWAVEncodings(t *testing.T) {
	t.Run("24-bit pcm", func(t *testing.T) {
		// -2^22 and 2^22 - 1
		payload := []byte{0x00, 0x00, 0xC0, 0xFF, 0xFF, 0x3F}
		channels, err := DecodeWAV(rawWAV(wav.AudioFormatPCM, 1, 24, 100, 6, payload), Metadata{})
		require.NoError(t, err)
		require.Len(t, channels, 1)
		assert.InDeltaSlice(t, []float64{-0.5, 0.5}, channels[0].Samples, 1e-6)
		assert.Equal(t, "channel/0", channels[0].Name)
	})

	t.Run("32-bit float", func(t *testing.T) {
		buf := &bytes.Buffer{}
		_ = binary.Write(buf, binary.LittleEndian, []float32{0.125, -0.75, 0.5, 1})
		channels, err := DecodeWAV(rawWAV(wav.AudioFormatIEEEFloat, 2, 32, 100, uint32(buf.Len()), buf.Bytes()), Metadata{Scale: 4})
		require.NoError(t, err)
		require.Len(t, channels, 2)
		assert.Equal(t, []float64{0.5, 2}, channels[0].Samples)
		assert.Equal(t, []float64{-3, 4}, channels[1].Samples)
	})

	t.Run("a-law is rejected", func(t *testing.T) {
		_, err := DecodeWAV(rawWAV(wav.AudioFormatALaw, 1, 8, 8000, 2, []byte{1, 2}), Metadata{})
		assert.ErrorContains(t, err, "unsupported wav encoding")
	})
}

func TestDecodeWAVBadHeaders(t *testing.T) {
	payload := pcm16([][]int16{{1, 2}, {3, 4}})

	t.Run("zero channels", func(t *testing.T) {
		_, err := DecodeWAV(rawWAV(wav.AudioFormatPCM, 0, 16, 1000, uint32(len(payload)), payload), Metadata{})
		assert.ErrorContains(t, err, "0 channels")
	})

	t.Run("zero sample rate", func(t *testing.T) {
		_, err := DecodeWAV(rawWAV(wav.AudioFormatPCM, 2, 16, 0, uint32(len(payload)), payload), Metadata{})
		assert.Error(t, err)
	})

	t.Run("block align disagrees with channels", func(t *testing.T) {
		data := rawWAV(wav.AudioFormatPCM, 2, 16, 1000, uint32(len(payload)), payload)
		// BlockAlign sits at byte 32
		binary.LittleEndian.PutUint16(data[32:], 6)
		_, err := DecodeWAV(data, Metadata{})
		assert.ErrorContains(t, err, "block align")
	})

	t.Run("truncated data chunk", func(t *testing.T) {
		data := rawWAV(wav.AudioFormatPCM, 2, 16, 1000, 64, payload)
		_, err := DecodeWAV(data, Metadata{})
		assert.ErrorContains(t, err, "truncated")
	})
}

func TestDecodeWAV(t *testing.T) {
	data := encodeWAV(t, 2000, []int{0, 16384, -16384, 8192}, []int{100, 200, 300, 400})
	start := time.Date(2023, 11, 2, 8, 0, 0, 0, time.UTC)

	channels, err := DecodeWAV(data, Metadata{
		Name:         "rig_acc",
		Class:        models.ClassAccelerometer,
		StartTime:    start,
		ChannelNames: []string{"ACC-X"},
		Scale:        2,
		Unit:         "g",
	})
	require.NoError(t, err)
	require.Len(t, channels, 2)

	x := channels[0]
	assert.Equal(t, "ACC-X", x.Name)
	assert.Equal(t, models.ClassAccelerometer, x.Class)
	assert.Equal(t, 2000.0, x.SampleRate)
	assert.Equal(t, start, x.StartTime)
	assert.Equal(t, "g", x.Unit)
	assert.InDeltaSlice(t, []float64{0, 1, -1, 0.5}, x.Samples, 1e-12)

	y := channels[1]
	assert.Equal(t, "rig_acc/1", y.Name)
	require.Len(t, y.Samples, 4)
	assert.InDelta(t, 2*100.0/32768, y.Samples[0], 1e-12)
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	_, err := DecodeWAV([]byte("definitely not a riff file"), Metadata{})
	assert.Error(t, err)
}

func TestRateFromIncrement(t *testing.T) {
	rate, err := RateFromIncrement(1.0 / 3)
	require.NoError(t, err)
	assert.Equal(t, 3.0, rate)

	rate, err = RateFromIncrement(1e-6)
	require.NoError(t, err)
	assert.Equal(t, 1e6, rate)

	rate, err = RateFromIncrement(0.0003)
	require.NoError(t, err)
	assert.Equal(t, 3333.333, rate)

	_, err = RateFromIncrement(0)
	assert.Error(t, err)
}
