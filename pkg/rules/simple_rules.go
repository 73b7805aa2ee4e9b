// SPDX-License-Identifier: Apache-2.0

package rules

// RemoveRule drops the column entirely.
type RemoveRule struct{}

func (r *RemoveRule) Apply(_ any) (Emission, error) {
	return Emission{}, nil
}

// KeepRule emits the value unchanged under the source column name.
type KeepRule struct {
	name string
}

func (r *KeepRule) Apply(value any) (Emission, error) {
	return Emission{Name: r.name, Value: value, Emitted: true}, nil
}

// AliasRule renames the column, leaving the value untouched.
type AliasRule struct {
	name string
}

func (r *AliasRule) Apply(value any) (Emission, error) {
	return Emission{Name: r.name, Value: value, Emitted: true}, nil
}
