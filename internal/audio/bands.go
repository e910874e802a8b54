package audio

import "math"

// FrequencyRanges holds the three band boundaries in Hz.
type FrequencyRanges struct {
	LowHz  float64 `json:"low"`
	MidHz  float64 `json:"mid"`
	HighHz float64 `json:"high"`
}

func DefaultFrequencyRanges() FrequencyRanges {
	return FrequencyRanges{LowHz: 10, MidHz: 150, HighHz: 9000}
}

// Clamp limits each boundary to its adjustable range.
func (r FrequencyRanges) Clamp() FrequencyRanges {
	return FrequencyRanges{
		LowHz:  clampF(r.LowHz, 1, 100),
		MidHz:  clampF(r.MidHz, 100, 1000),
		HighHz: clampF(r.HighHz, 1000, 20000),
	}
}

// Bands are normalized band energies in [0,1].
type Bands struct {
	Low  float64
	Mid  float64
	High float64
}

// BinRange is a half-open span of spectrum bins.
type BinRange struct{ Start, End int }

func (b BinRange) Len() int { return max(0, b.End-b.Start) }

// BinIndex maps a frequency to its bin: floor(hz*n/sampleRate).
func BinIndex(hz float64, n, sampleRate int) int {
	if sampleRate <= 0 {
		return 0
	}
	return int(math.Floor(hz * float64(n) / float64(sampleRate)))
}

// BinRanges splits n bins into low [bin(low), bin(mid)), mid
// [bin(mid), bin(high)) and high [bin(high), n-1]. Low starts at bin(low),
// so bins below LowHz are skipped once LowHz exceeds one bin width.
func BinRanges(n, sampleRate int, r FrequencyRanges) (low, mid, high BinRange) {
	lo := clampBin(BinIndex(r.LowHz, n, sampleRate), n)
	mi := clampBin(BinIndex(r.MidHz, n, sampleRate), n)
	hi := clampBin(BinIndex(r.HighHz, n, sampleRate), n)
	return BinRange{lo, mi}, BinRange{mi, hi}, BinRange{hi, n}
}

func clampBin(i, n int) int {
	return max(0, min(i, n))
}

// BandsFrom averages each band of a byte spectrum and normalizes by 255.
func BandsFrom(spectrum []uint8, sampleRate int, r FrequencyRanges) Bands {
	low, mid, high := BinRanges(len(spectrum), sampleRate, r)
	return Bands{
		Low:  normalize(mean(spectrum, low)),
		Mid:  normalize(mean(spectrum, mid)),
		High: normalize(mean(spectrum, high)),
	}
}

func mean(spectrum []uint8, r BinRange) float64 {
	if r.Len() == 0 {
		return 0
	}
	sum := 0
	for _, v := range spectrum[r.Start:r.End] {
		sum += int(v)
	}
	return float64(sum) / float64(r.Len())
}

func normalize(v float64) float64 {
	return clampF(v/255, 0, 1)
}
