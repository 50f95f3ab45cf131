package audio

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/at-wat/ebml-go"
	"github.com/at-wat/ebml-go/webm"
	"go.uber.org/zap"
	"gopkg.in/hraban/opus.v2"

	"github.com/chadiek/jarvis/internal/errorsx"
)

// AcceptedMIME is the only upload container the transcoder decodes.
const AcceptedMIME = "audio/webm"

const (
	opusCodecID = "A_OPUS"
	// 120ms is the longest Opus frame.
	maxOpusFrameMs = 120
)

var (
	ErrUnsupportedMIME = errorsx.New(errorsx.UnsupportedFormat, "unsupported audio format")
	ErrNoOpusTrack     = errorsx.New(errorsx.UnsupportedFormat, "webm has no opus audio track")
	ErrNoAudio         = errorsx.New(errorsx.UnsupportedFormat, "webm contains no audio frames")
)

// AcceptsMIME reports whether declared names a WebM container. Parameters
// such as codecs=opus are ignored.
func AcceptsMIME(declared string) bool {
	mt, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return false
	}
	return strings.EqualFold(mt, AcceptedMIME)
}

// Transcoder turns uploaded WebM/Opus recordings into canonical clips.
type Transcoder struct {
	log *zap.Logger
}

// NewTranscoder returns a Transcoder logging to log.
func NewTranscoder(log *zap.Logger) *Transcoder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Transcoder{log: log}
}

type webmFile struct {
	Header  webm.EBMLHeader `ebml:"EBML"`
	Segment webm.Segment    `ebml:"Segment"`
}

// Transcode validates the declared type, then demuxes, decodes at 16 kHz
// and downmixes the recording into a mono WAV clip. Every failure,
// including a decoder panic, is reported as UnsupportedFormat.
func (t *Transcoder) Transcode(data []byte, declaredMIME string) (clip Clip, err error) {
	if !AcceptsMIME(declaredMIME) {
		return Clip{}, ErrUnsupportedMIME
	}
	defer func() {
		if r := recover(); r != nil {
			t.log.Error("decoder panic", zap.Any("panic", r))
			clip, err = Clip{}, errorsx.Wrap(fmt.Errorf("decode panic: %v", r), errorsx.UnsupportedFormat)
		}
	}()

	pcm, err := decodeWebM(data)
	if err != nil {
		t.log.Warn("transcode failed", zap.Int("bytes", len(data)), zap.Error(err))
		return Clip{}, errorsx.Wrap(err, errorsx.UnsupportedFormat)
	}
	clip, err = NewClip(pcm, SampleRate)
	if err != nil {
		return Clip{}, errorsx.Wrap(err, errorsx.UnsupportedFormat)
	}
	t.log.Debug("transcoded upload",
		zap.Int("bytes", len(data)),
		zap.Duration("duration", clip.Duration()))
	return clip, nil
}

// decodeWebM returns mono samples at SampleRate. Opus decodes natively at
// 16 kHz, so only a downmix is needed.
func decodeWebM(data []byte) ([]int16, error) {
	if len(data) == 0 {
		return nil, errors.New("empty upload")
	}
	var file webmFile
	if err := ebml.Unmarshal(bytes.NewReader(data), &file); err != nil {
		return nil, fmt.Errorf("demux webm: %w", err)
	}

	var track *webm.TrackEntry
	for i := range file.Segment.Tracks.TrackEntry {
		if file.Segment.Tracks.TrackEntry[i].CodecID == opusCodecID {
			track = &file.Segment.Tracks.TrackEntry[i]
			break
		}
	}
	if track == nil {
		return nil, ErrNoOpusTrack
	}
	channels := 1
	if track.Audio != nil && track.Audio.Channels > 0 {
		channels = int(track.Audio.Channels)
	}

	dec, err := opus.NewDecoder(SampleRate, channels)
	if err != nil {
		return nil, fmt.Errorf("opus decoder: %w", err)
	}
	frame := make([]int16, SampleRate*maxOpusFrameMs/1000*channels)
	var out []int16
	decode := func(b ebml.Block) error {
		if b.TrackNumber != track.TrackNumber {
			return nil
		}
		for _, payload := range b.Data {
			n, err := dec.Decode(payload, frame)
			if err != nil {
				return fmt.Errorf("decode opus frame: %w", err)
			}
			out = append(out, Downmix(frame[:n*channels], channels)...)
		}
		return nil
	}
	for _, cluster := range file.Segment.Cluster {
		for _, b := range cluster.SimpleBlock {
			if err := decode(b); err != nil {
				return nil, err
			}
		}
		for _, g := range cluster.BlockGroup {
			if err := decode(g.Block); err != nil {
				return nil, err
			}
		}
	}
	if len(out) == 0 {
		return nil, ErrNoAudio
	}
	return out, nil
}
