// Package audio provides the PCM clip type shared by rendering, speed
// correction, and track assembly, plus WAV encoding, MP3 duration scanning
// for the estimation oracle, and a pitch-preserving time-stretch.
package audio
