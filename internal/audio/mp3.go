package audio

import (
	"fmt"
	"time"
)

// Bitrate tables for Layer III, kbit/s, indexed by the header bitrate bits.
var (
	mp3BitrateV1 = [16]int{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 0}
	mp3BitrateV2 = [16]int{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160, 0}
)

var mp3SampleRates = map[int][4]int{
	3: {44100, 48000, 32000, 0}, // MPEG-1
	2: {22050, 24000, 16000, 0}, // MPEG-2
	0: {11025, 12000, 8000, 0},  // MPEG-2.5
}

// MP3Duration walks the frame headers of an MP3 stream and sums frame
// durations. It tolerates leading ID3v2 tags and junk between frames, which
// is enough for duration estimation; it does not decode audio.
func MP3Duration(data []byte) (time.Duration, error) {
	pos := skipID3(data)
	var total time.Duration
	frames := 0

	for pos+4 <= len(data) {
		if data[pos] != 0xFF || data[pos+1]&0xE0 != 0xE0 {
			pos++
			continue
		}

		version := int(data[pos+1]>>3) & 0x03
		layer := int(data[pos+1]>>1) & 0x03
		if version == 1 || layer != 1 { // reserved version, or not Layer III
			pos++
			continue
		}

		bitrateIndex := int(data[pos+2]>>4) & 0x0F
		sampleRateIndex := int(data[pos+2]>>2) & 0x03
		padding := int(data[pos+2]>>1) & 0x01

		rates, ok := mp3SampleRates[version]
		if !ok {
			pos++
			continue
		}
		sampleRate := rates[sampleRateIndex]
		if sampleRate == 0 {
			pos++
			continue
		}

		var bitrate, samplesPerFrame int
		if version == 3 {
			bitrate = mp3BitrateV1[bitrateIndex]
			samplesPerFrame = 1152
		} else {
			bitrate = mp3BitrateV2[bitrateIndex]
			samplesPerFrame = 576
		}
		if bitrate == 0 {
			pos++
			continue
		}

		frameLen := samplesPerFrame / 8 * bitrate * 1000 / sampleRate
		frameLen += padding
		if frameLen <= 0 {
			pos++
			continue
		}

		total += time.Duration(samplesPerFrame) * time.Second / time.Duration(sampleRate)
		frames++
		pos += frameLen
	}

	if frames == 0 {
		return 0, fmt.Errorf("no mp3 frames found in %d bytes", len(data))
	}
	return total, nil
}

func skipID3(data []byte) int {
	if len(data) < 10 || string(data[:3]) != "ID3" {
		return 0
	}
	// Syncsafe 28-bit size, excluding the 10-byte header.
	size := int(data[6]&0x7F)<<21 | int(data[7]&0x7F)<<14 | int(data[8]&0x7F)<<7 | int(data[9]&0x7F)
	end := 10 + size
	if end > len(data) {
		return len(data)
	}
	return end
}
