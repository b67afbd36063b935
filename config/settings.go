package config

import (
	"fmt"
)

// MultiStringOption collects the values of a string flag that may be
// given more than once, e.g.
// h2dump --input-file="a.pcap" --input-file="b.pcap"
type MultiStringOption struct {
	Params *[]string
}

func (h *MultiStringOption) String() string {
	if h.Params == nil {
		return ""
	}
	return fmt.Sprint(*h.Params)
}

// Set gets called multiple times for each flag with same name
func (h *MultiStringOption) Set(value string) error {
	if h.Params == nil {
		return nil
	}

	*h.Params = append(*h.Params, value)
	return nil
}

// AppSettings holds everything the h2dump command line configures.
type AppSettings struct {
	// ######################## input #######################
	InputFiles []string `json:"input-file"`

	// --- filter ---
	Port int      `json:"port"`
	IPs  []string `json:"ip"`

	// --- other ---
	LogLevel string `json:"loglevel"`
}
