package http2

import "fmt"

// SettingID identifies one SETTINGS parameter.
// https://httpwg.org/specs/rfc7540.html#iana-settings
type SettingID uint16

const (
	SettingHeaderTableSize       SettingID = 0x1
	SettingEnablePush            SettingID = 0x2
	SettingMaxConcurrentStreams  SettingID = 0x3
	SettingInitialWindowSize     SettingID = 0x4
	SettingMaxFrameSize          SettingID = 0x5
	SettingMaxHeaderListSize     SettingID = 0x6
	SettingAcceptCacheDigest     SettingID = 0x7
	SettingEnableConnectProtocol SettingID = 0x8
)

var settingName = map[SettingID]string{
	SettingHeaderTableSize:       "HEADER_TABLE_SIZE",
	SettingEnablePush:            "ENABLE_PUSH",
	SettingMaxConcurrentStreams:  "MAX_CONCURRENT_STREAMS",
	SettingInitialWindowSize:     "INITIAL_WINDOW_SIZE",
	SettingMaxFrameSize:          "MAX_FRAME_SIZE",
	SettingMaxHeaderListSize:     "MAX_HEADER_LIST_SIZE",
	SettingAcceptCacheDigest:     "ACCEPT_CACHE_DIGEST",
	SettingEnableConnectProtocol: "ENABLE_CONNECT_PROTOCOL",
}

func (s SettingID) String() string {
	if v, ok := settingName[s]; ok {
		return v
	}
	return fmt.Sprintf("UNKNOWN_SETTING_%d", uint16(s))
}

// Setting is one (identifier, value) pair of a SETTINGS frame.
type Setting struct {
	ID  SettingID
	Val uint32
}

func (s Setting) String() string {
	return fmt.Sprintf("[%v = %d]", s.ID, s.Val)
}

const (
	maxInitialWindowSize = 1<<31 - 1
	maxMaxFrameSize      = 1<<24 - 1
)

// Valid checks the per-setting upper bounds of RFC 7540 Section 6.5.2:
// ENABLE_PUSH 0 or 1, INITIAL_WINDOW_SIZE up to 2^31-1, MAX_FRAME_SIZE
// up to 2^24-1. The 16384 lower bound of MAX_FRAME_SIZE is not checked.
func (s Setting) Valid() error {
	switch s.ID {
	case SettingEnablePush:
		if s.Val > 1 {
			return protocolError(ErrCodeProtocol, "ENABLE_PUSH must be 0 or 1, got %d", s.Val)
		}
	case SettingInitialWindowSize:
		if s.Val > maxInitialWindowSize {
			return protocolError(ErrCodeFlowControl,
				"INITIAL_WINDOW_SIZE above 2^31-1: %d", s.Val)
		}
	case SettingMaxFrameSize:
		if s.Val > maxMaxFrameSize {
			return protocolError(ErrCodeProtocol, "MAX_FRAME_SIZE above 2^24-1: %d", s.Val)
		}
	}
	return nil
}

// knownSetting reports whether the identifier is one this codec
// understands; unknown identifiers are skipped on decode.
func knownSetting(id SettingID) bool {
	_, ok := settingName[id]
	return ok
}
