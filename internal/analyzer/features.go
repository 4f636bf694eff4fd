package analyzer

import "github.com/guidoenr/lanechart/internal/params"

// BandEnergies holds the summed spectral magnitude of each lane's band for one
// frame, indexed by lane.
type BandEnergies [params.LaneCount]float64

// Energies integrates spectrum magnitude into the given bands. Bins outside
// every band are ignored.
func Energies(spectrum Spectrum, bands [params.LaneCount]params.Band) BandEnergies {
	var e BandEnergies
	for _, bin := range spectrum {
		for lane, band := range bands {
			if band.Contains(bin.Freq) {
				e[lane] += bin.Magnitude
			}
		}
	}
	return e
}
