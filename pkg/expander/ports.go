package expander

import (
	"strconv"
	"strings"

	"github.com/projectdiscovery/netdiag/pkg/types"
)

const (
	minPort = 1
	maxPort = 65535
)

// ExpandPorts expands a port expression into the ports it names.
// A range "a-b" yields a..b ascending; a list "p1,p2,..." yields the ports
// in the given order, duplicates included. The two forms cannot be mixed.
func ExpandPorts(spec string) ([]int, error) {
	input := strings.TrimSpace(spec)
	if input == "" {
		return nil, &types.InvalidPortSpecError{Input: spec, Reason: "empty port spec"}
	}

	isRange := strings.Contains(input, "-")
	isList := strings.Contains(input, ",")
	if isRange && isList {
		return nil, &types.InvalidPortSpecError{Input: spec, Reason: "cannot mix ranges and lists"}
	}

	if isRange {
		return expandRange(spec, input)
	}

	tokens := strings.Split(input, ",")
	ports := make([]int, 0, len(tokens))
	for _, token := range tokens {
		port, err := parsePort(spec, token)
		if err != nil {
			return nil, err
		}
		ports = append(ports, port)
	}
	return ports, nil
}

func expandRange(spec, input string) ([]int, error) {
	parts := strings.Split(input, "-")
	if len(parts) != 2 {
		return nil, &types.InvalidPortSpecError{Input: spec, Token: input, Reason: "range must have exactly one start and one end"}
	}

	start, err := parsePort(spec, parts[0])
	if err != nil {
		return nil, err
	}
	end, err := parsePort(spec, parts[1])
	if err != nil {
		return nil, err
	}
	if start > end {
		return nil, &types.InvalidPortSpecError{Input: spec, Token: input, Reason: "range start is greater than end"}
	}

	ports := make([]int, 0, end-start+1)
	for port := start; port <= end; port++ {
		ports = append(ports, port)
	}
	return ports, nil
}

func parsePort(spec, token string) (int, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, &types.InvalidPortSpecError{Input: spec, Reason: "empty port"}
	}
	// Atoi accepts a sign, ports never carry one
	if token[0] < '0' || token[0] > '9' {
		return 0, &types.InvalidPortSpecError{Input: spec, Token: token, Reason: "not a number"}
	}
	port, err := strconv.Atoi(token)
	if err != nil {
		return 0, &types.InvalidPortSpecError{Input: spec, Token: token, Reason: "not a number"}
	}
	if port < minPort || port > maxPort {
		return 0, &types.InvalidPortSpecError{Input: spec, Token: token, Reason: "port out of range 1-65535"}
	}
	return port, nil
}
