package engine

import (
	"fmt"

	"github.com/spektr-org/voltcalc/tables"
)

// Derate applies the ambient-temperature and raceway-fill corrections to a
// base ampacity. Factors are looked up in the ratingC insulation column;
// ambient at or below the table base leaves the temperature factor at 1.0.
func Derate(repo *tables.Repository, baseAmpacity, ambientC float64, conductors, ratingC int) (DerationFactors, float64, error) {
	if !isFinite(baseAmpacity) || baseAmpacity <= 0 {
		return DerationFactors{}, 0, invalid("baseAmpacity", fmt.Sprint(baseAmpacity), "must be > 0")
	}
	if !isFinite(ambientC) {
		return DerationFactors{}, 0, invalid("ambientC", fmt.Sprint(ambientC), "must be a finite number")
	}
	if conductors < 1 {
		return DerationFactors{}, 0, invalid("conductorCount", fmt.Sprint(conductors), "must be >= 1")
	}
	f, err := deration(repo, ambientC, conductors, ratingC)
	if err != nil {
		return DerationFactors{}, 0, err
	}
	return f, baseAmpacity * f.Combined(), nil
}

func deration(repo *tables.Repository, ambientC float64, conductors, ratingC int) (DerationFactors, error) {
	tf, err := repo.TemperatureFactor(ambientC, ratingC)
	if err != nil {
		return DerationFactors{}, err
	}
	ff, err := repo.FillFactor(conductors)
	if err != nil {
		return DerationFactors{}, err
	}
	return DerationFactors{TemperatureFactor: tf, FillFactor: ff}, nil
}
