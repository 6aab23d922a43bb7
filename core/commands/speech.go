package commands

const (
	// KindInstructorSpeech identifies a spoken turn by the instructor party.
	KindInstructorSpeech Kind = "instructor_speech"
	// KindPeerSpeech identifies a spoken turn by the peer party.
	KindPeerSpeech Kind = "peer_speech"
)

// Speech is one spoken turn, or one slice of a spoken turn when the service
// pipelines a long utterance across several commands.
//
// Text, when present, is appended to the chat log before audio handling
// begins. Audio, when present, is one encoded fragment of the party's
// current utterance. StreamComplete marks the fragment that closes the
// utterance: only the closing command gates the sequencer on playback;
// earlier fragments complete as soon as they are handed to the scheduler.
type Speech struct {
	Base

	Party          Party
	Text           string
	Audio          []byte
	StreamComplete bool
}

// NewSpeech creates a speech command for the given party.
func NewSpeech(party Party, text string, audio []byte, streamComplete bool) Speech {
	kind := KindInstructorSpeech
	if party == PartyPeer {
		kind = KindPeerSpeech
	}

	return Speech{
		Base:           NewBase(kind),
		Party:          party,
		Text:           text,
		Audio:          audio,
		StreamComplete: streamComplete,
	}
}

// HasAudio reports whether this command carries an audio fragment.
func (s Speech) HasAudio() bool { return len(s.Audio) > 0 }
