// SPDX-License-Identifier: Apache-2.0

package transform

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/starload/starload/pkg/etl"
	"github.com/starload/starload/pkg/expr"
	"github.com/starload/starload/pkg/policy"
	"github.com/starload/starload/pkg/rules"
)

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		pipeline *policy.Pipeline

		wantErr error
	}{
		{
			name: "ok",
			pipeline: &policy.Pipeline{
				Columns: []policy.Column{
					{Source: "id", Rule: policy.Rule{Action: policy.ActionAlias, EmitAs: "customer_id"}},
				},
				Computed: []policy.ComputedField{
					{Name: "revenue_cents", Expression: "amount * 100"},
				},
			},
		},
		{
			name: "error - invalid column rule",
			pipeline: &policy.Pipeline{
				Columns: []policy.Column{
					{Source: "id", Rule: policy.Rule{Action: "obfuscate"}},
				},
			},

			wantErr: rules.ErrUnknownAction,
		},
		{
			name: "error - invalid computed expression",
			pipeline: &policy.Pipeline{
				Computed: []policy.ComputedField{
					{Name: "revenue_cents", Expression: "amount *"},
				},
			},

			wantErr: expr.ErrSyntax,
		},
	}

	builder := rules.NewBuilder()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			transformer, err := New(tc.pipeline, builder)
			require.ErrorIs(t, err, tc.wantErr)
			if tc.wantErr != nil {
				return
			}
			require.NotNil(t, transformer)
		})
	}
}

func TestRowTransformer_Transform(t *testing.T) {
	t.Parallel()

	builder := rules.NewBuilder(rules.WithSalt("test-salt"))

	tests := []struct {
		name     string
		pipeline *policy.Pipeline
		row      etl.Row

		wantRow etl.Row
		wantErr error
	}{
		{
			name: "ok - remove, keep and alias",
			pipeline: &policy.Pipeline{
				Columns: []policy.Column{
					{Source: "id", Rule: policy.Rule{Action: policy.ActionAlias, EmitAs: "customer_id"}},
					{Source: "ssn", Rule: policy.Rule{Action: policy.ActionRemove}},
					{Source: "country", Rule: policy.Rule{Action: policy.ActionKeep}},
				},
			},
			row: etl.Row{"id": int64(7), "ssn": "000-00-0000", "country": "PT"},

			wantRow: etl.Row{"customer_id": int64(7), "country": "PT"},
		},
		{
			name: "ok - dotted source names match the final segment",
			pipeline: &policy.Pipeline{
				Columns: []policy.Column{
					{Source: "ops.customers.country", Rule: policy.Rule{Action: policy.ActionKeep}},
				},
			},
			row: etl.Row{"country": "PT"},

			wantRow: etl.Row{"country": "PT"},
		},
		{
			name: "ok - unlisted source columns are not emitted",
			pipeline: &policy.Pipeline{
				Columns: []policy.Column{
					{Source: "id", Rule: policy.Rule{Action: policy.ActionKeep}},
				},
			},
			row: etl.Row{"id": int64(7), "internal_notes": "do not ship"},

			wantRow: etl.Row{"id": int64(7)},
		},
		{
			name: "ok - later emission overwrites earlier on name collision",
			pipeline: &policy.Pipeline{
				Columns: []policy.Column{
					{Source: "email", Rule: policy.Rule{Action: policy.ActionAlias, EmitAs: "contact"}},
					{Source: "phone", Rule: policy.Rule{Action: policy.ActionAlias, EmitAs: "contact"}},
				},
			},
			row: etl.Row{"email": "alice@example.com", "phone": "+351000000000"},

			wantRow: etl.Row{"contact": "+351000000000"},
		},
		{
			name: "ok - computed fields see raw and emitted fields",
			pipeline: &policy.Pipeline{
				Columns: []policy.Column{
					{Source: "id", Rule: policy.Rule{Action: policy.ActionAlias, EmitAs: "order_id"}},
				},
				Computed: []policy.ComputedField{
					{Name: "revenue_cents", Expression: "amount * 100"},
				},
			},
			row: etl.Row{"id": int64(1), "amount": 15.0},

			wantRow: etl.Row{"order_id": int64(1), "revenue_cents": int64(1500)},
		},
		{
			name: "ok - computed fields can reference earlier computed fields",
			pipeline: &policy.Pipeline{
				Computed: []policy.ComputedField{
					{Name: "revenue_cents", Expression: "amount * 100"},
					{Name: "fee_cents", Expression: "revenue_cents / 10"},
				},
			},
			row: etl.Row{"amount": 15.0},

			wantRow: etl.Row{"revenue_cents": int64(1500), "fee_cents": int64(150)},
		},
		{
			name: "ok - missing source column behaves as null",
			pipeline: &policy.Pipeline{
				Columns: []policy.Column{
					{Source: "email", Rule: policy.Rule{Action: policy.ActionHash, EmitAs: "email_hash", Using: rules.MethodSHA256}},
				},
			},
			row: etl.Row{},

			// sha256 of the empty string
			wantRow: etl.Row{"email_hash": "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		},
		{
			name: "error - computed field over unknown identifier",
			pipeline: &policy.Pipeline{
				Computed: []policy.ComputedField{
					{Name: "revenue_cents", Expression: "amount * rate"},
				},
			},
			row: etl.Row{"amount": 15.0},

			wantErr: expr.ErrUnknownIdentifier,
		},
		{
			name: "error - transform over unsupported type",
			pipeline: &policy.Pipeline{
				Columns: []policy.Column{
					{Source: "dob", Rule: policy.Rule{Action: policy.ActionTransform, EmitAs: "age_category", Using: rules.MethodAgeBin}},
				},
			},
			row: etl.Row{"dob": 19900101},

			wantErr: rules.ErrUnsupportedValueType,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			transformer, err := New(tc.pipeline, builder)
			require.NoError(t, err)

			out, err := transformer.Transform(tc.row)
			require.ErrorIs(t, err, tc.wantErr)
			if tc.wantErr != nil {
				return
			}
			require.Equal(t, tc.wantRow, out)
		})
	}
}

func TestRowTransformer_TransformDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	pipeline := &policy.Pipeline{
		Columns: []policy.Column{
			{Source: "id", Rule: policy.Rule{Action: policy.ActionAlias, EmitAs: "order_id"}},
		},
		Computed: []policy.ComputedField{
			{Name: "revenue_cents", Expression: "amount * 100"},
		},
	}
	transformer, err := New(pipeline, rules.NewBuilder())
	require.NoError(t, err)

	row := etl.Row{"id": int64(1), "amount": 15.0}
	_, err = transformer.Transform(row)
	require.NoError(t, err)
	require.Equal(t, etl.Row{"id": int64(1), "amount": 15.0}, row)
}
