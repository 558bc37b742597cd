package engine

import (
	"math"
	"strings"

	"github.com/spektr-org/voltcalc/tables"
)

// ============================================================================
// MOTOR: Full-load, locked-rotor and starting current
// ============================================================================
// FLA comes from the nearest voltage class within ±10%: tabulated values
// as-is, interpolated inside the HP range, HP × amps-per-HP outside it.
//
// Locked-rotor current is FLA × multiplier, or from the NEMA code letter
// (kVA/HP × HP × 1000 / (√3 · V)) when one is given. Starting current then
// depends on the start method: DOL draws LRC, soft start a fraction of it,
// a VFD slightly above FLA.
// ============================================================================

// SizeMotor computes motor currents.
func SizeMotor(repo *tables.Repository, in MotorInput, rules RuleConfiguration) (*MotorResult, error) {
	if in.Method == "" {
		in.Method = StartDirectOnLine
	}
	in.CodeLetter = strings.ToUpper(strings.TrimSpace(in.CodeLetter))
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if err := checkRules(rules, repo.Revision()); err != nil {
		return nil, err
	}

	fla, src, err := repo.MotorFLA(in.HP, in.Voltage)
	if err != nil {
		return nil, err
	}

	res := &MotorResult{
		Revision:   repo.Revision(),
		HP:         in.HP,
		Voltage:    in.Voltage,
		FLA:        fla,
		FLASource:  src,
		Method:     in.Method,
		CodeLetter: in.CodeLetter,
	}

	if in.CodeLetter != "" {
		kvaPerHP, err := repo.CodeLetterKVAPerHP(in.CodeLetter)
		if err != nil {
			return nil, err
		}
		res.LockedRotorAmps = kvaPerHP * in.HP * 1000 / (math.Sqrt(3) * in.Voltage)
		res.LockedRotorMultiplier = res.LockedRotorAmps / fla
	} else {
		res.LockedRotorMultiplier = rules.LockedRotorMultiplier
		res.LockedRotorAmps = fla * rules.LockedRotorMultiplier
	}

	switch in.Method {
	case StartSoftStart:
		res.StartingAmps = res.LockedRotorAmps * rules.SoftStartFactor
	case StartVFD:
		res.StartingAmps = fla * rules.VFDStartFactor
	default:
		res.StartingAmps = res.LockedRotorAmps
	}
	return res, nil
}

// SizeContactor returns the smallest NEMA starter rated for the motor.
func SizeContactor(repo *tables.Repository, in ContactorInput, rules RuleConfiguration) (*ContactorResult, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if err := checkRules(rules, repo.Revision()); err != nil {
		return nil, err
	}
	size, err := repo.ContactorSize(in.HP, in.Voltage)
	if err != nil {
		return nil, err
	}
	return &ContactorResult{Revision: repo.Revision(), HP: in.HP, Voltage: in.Voltage, NEMASize: size}, nil
}
