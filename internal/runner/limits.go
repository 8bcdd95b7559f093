package runner

import "github.com/projectdiscovery/gologger"

// descriptorReserve is kept free for the resolver, log files and stdio
const descriptorReserve = 64

// clampConcurrency lowers concurrency so in-flight probes fit the open file limit
func clampConcurrency(concurrency int) int {
	limit, ok := openFileLimit()
	if !ok || limit <= descriptorReserve {
		return concurrency
	}
	return clampTo(concurrency, limit-descriptorReserve)
}

func clampTo(concurrency int, ceiling uint64) int {
	if ceiling == 0 || uint64(concurrency) <= ceiling {
		return concurrency
	}
	gologger.Warning().Msgf("Concurrency %d exceeds the open file limit, using %d\n", concurrency, ceiling)
	return int(ceiling)
}
