package edits

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"recut/internal/services"
)

// Operation names accepted on the wire.
const (
	OpSetGlobalStyle    = "set_global_style"
	OpGlobalSubjectSwap = "global_subject_swap"
	OpUpdateShotParams  = "update_shot_params"
	OpEnhanceShot       = "enhance_shot_description"
	OpReplaceEntityRef  = "replace_entity_ref"
)

// Op is one decoded edit operation.
type Op interface {
	// Name returns the wire discriminator.
	Name() string
	// Validate rejects structurally complete but unusable operations.
	Validate() error
}

// SetGlobalStyle replaces the job-wide style prompt and invalidates every
// shot's rendered output.
type SetGlobalStyle struct {
	Value string `json:"value"`
}

func (SetGlobalStyle) Name() string { return OpSetGlobalStyle }

func (o SetGlobalStyle) Validate() error {
	if strings.TrimSpace(o.Value) == "" {
		return services.Wrap(services.ErrValidation, "", OpSetGlobalStyle, "value is required", nil)
	}
	return nil
}

// GlobalSubjectSwap rewrites a subject across every shot description that
// contains it, case-insensitively.
type GlobalSubjectSwap struct {
	OldSubject string `json:"old_subject"`
	NewSubject string `json:"new_subject"`
}

func (GlobalSubjectSwap) Name() string { return OpGlobalSubjectSwap }

func (o GlobalSubjectSwap) Validate() error {
	if strings.TrimSpace(o.OldSubject) == "" {
		return services.Wrap(services.ErrValidation, "", OpGlobalSubjectSwap, "old_subject is required", nil)
	}
	if strings.TrimSpace(o.NewSubject) == "" {
		return services.Wrap(services.ErrValidation, "", OpGlobalSubjectSwap, "new_subject is required", nil)
	}
	return nil
}

// UpdateShotParams overwrites one shot's description. An empty description
// leaves the text untouched while still invalidating the shot, which makes
// the operation double as a forced single-shot re-render.
type UpdateShotParams struct {
	ShotID      string `json:"shot_id"`
	Description string `json:"description,omitempty"`
}

func (UpdateShotParams) Name() string { return OpUpdateShotParams }

func (o UpdateShotParams) Validate() error {
	if strings.TrimSpace(o.ShotID) == "" {
		return services.Wrap(services.ErrValidation, "", OpUpdateShotParams, "shot_id is required", nil)
	}
	return nil
}

// EnhanceShotDescription appends spatial and style annotation fragments to
// one shot's description.
type EnhanceShotDescription struct {
	ShotID      string `json:"shot_id"`
	SpatialInfo string `json:"spatial_info,omitempty"`
	StyleBoost  string `json:"style_boost,omitempty"`
}

func (EnhanceShotDescription) Name() string { return OpEnhanceShot }

func (o EnhanceShotDescription) Validate() error {
	if strings.TrimSpace(o.ShotID) == "" {
		return services.Wrap(services.ErrValidation, "", OpEnhanceShot, "shot_id is required", nil)
	}
	if strings.TrimSpace(o.SpatialInfo) == "" && strings.TrimSpace(o.StyleBoost) == "" {
		return services.Wrap(services.ErrValidation, "", OpEnhanceShot, "spatial_info or style_boost is required", nil)
	}
	return nil
}

// ReplaceEntityRef points an entity at a new reference image and invalidates
// the shots that feature it.
type ReplaceEntityRef struct {
	EntityID string `json:"entity_id"`
	NewRef   string `json:"new_ref"`
}

func (ReplaceEntityRef) Name() string { return OpReplaceEntityRef }

func (o ReplaceEntityRef) Validate() error {
	if strings.TrimSpace(o.EntityID) == "" {
		return services.Wrap(services.ErrValidation, "", OpReplaceEntityRef, "entity_id is required", nil)
	}
	if strings.TrimSpace(o.NewRef) == "" {
		return services.Wrap(services.ErrValidation, "", OpReplaceEntityRef, "new_ref is required", nil)
	}
	return nil
}

type opProbe struct {
	Op string `json:"op"`
}

// Decode parses one JSON edit object into its typed operation.
func Decode(raw json.RawMessage) (Op, error) {
	var probe opProbe
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, services.Wrap(services.ErrValidation, "", "decode edit", "malformed edit object", err)
	}

	var (
		op  Op
		err error
	)
	switch strings.TrimSpace(probe.Op) {
	case OpSetGlobalStyle:
		op, err = decodeInto[SetGlobalStyle](raw)
	case OpGlobalSubjectSwap:
		op, err = decodeInto[GlobalSubjectSwap](raw)
	case OpUpdateShotParams:
		op, err = decodeInto[UpdateShotParams](raw)
	case OpEnhanceShot:
		op, err = decodeInto[EnhanceShotDescription](raw)
	case OpReplaceEntityRef:
		op, err = decodeInto[ReplaceEntityRef](raw)
	case "":
		return nil, services.Wrap(services.ErrValidation, "", "decode edit", "missing op name", nil)
	default:
		return nil, services.Wrap(services.ErrValidation, "", "decode edit", fmt.Sprintf("unknown op %q", probe.Op), nil)
	}
	if err != nil {
		return nil, err
	}
	if err := op.Validate(); err != nil {
		return nil, err
	}
	return op, nil
}

func decodeInto[T Op](raw json.RawMessage) (Op, error) {
	var op T
	if err := json.Unmarshal(raw, &op); err != nil {
		return nil, services.Wrap(services.ErrValidation, "", "decode edit", fmt.Sprintf("malformed %s", op.Name()), err)
	}
	return op, nil
}

// DecodeBatch parses either a single edit object or a JSON array of them,
// in order. One bad operation rejects the whole batch; nothing is applied
// by decoding.
func DecodeBatch(data []byte) ([]Op, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, services.Wrap(services.ErrValidation, "", "decode edits", "empty payload", nil)
	}

	var raws []json.RawMessage
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &raws); err != nil {
			return nil, services.Wrap(services.ErrValidation, "", "decode edits", "malformed edit list", err)
		}
	} else {
		raws = []json.RawMessage{trimmed}
	}
	if len(raws) == 0 {
		return nil, services.Wrap(services.ErrValidation, "", "decode edits", "no operations supplied", nil)
	}

	ops := make([]Op, 0, len(raws))
	for _, raw := range raws {
		op, err := Decode(raw)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}
