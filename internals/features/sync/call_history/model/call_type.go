package model

import (
	"fmt"
	"strconv"
	"strings"
)

type CallType string

const (
	CallIncoming CallType = "incoming"
	CallOutgoing CallType = "outgoing"
	CallMissed   CallType = "missed"
	CallRejected CallType = "rejected"
	CallUnknown  CallType = "unknown"
)

var KnownCallTypes = []CallType{CallIncoming, CallOutgoing, CallMissed, CallRejected, CallUnknown}

// Android CallLog.Calls.TYPE codes
var androidCallTypes = map[int]CallType{
	1: CallIncoming,
	2: CallOutgoing,
	3: CallMissed,
	5: CallRejected,
}

// ParseCallType accepts names (any case) or Android numeric codes. Anything
// else, including a missing value, maps to CallUnknown.
func ParseCallType(v any) CallType {
	switch t := v.(type) {
	case nil:
		return CallUnknown
	case float64:
		return fromCode(int(t))
	case int:
		return fromCode(t)
	case int64:
		return fromCode(int(t))
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		if n, err := strconv.Atoi(s); err == nil {
			return fromCode(n)
		}
		for _, ct := range KnownCallTypes {
			if string(ct) == s {
				return ct
			}
		}
		return CallUnknown
	default:
		return ParseCallType(fmt.Sprint(t))
	}
}

func fromCode(n int) CallType {
	if ct, ok := androidCallTypes[n]; ok {
		return ct
	}
	return CallUnknown
}

// ParseCallTypeFilter validates a ?call_type= query value. "" and "all" mean no filter.
func ParseCallTypeFilter(s string) (*CallType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "all" {
		return nil, nil
	}
	for _, ct := range KnownCallTypes {
		if string(ct) == s {
			return &ct, nil
		}
	}
	return nil, fmt.Errorf("unknown call_type %q", s)
}
