// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testPolicyYAML = `
pipelines:
  - name: customers
    kind: dimension
    source: ops.customers
    emit_to: anl.dim_customer
    columns:
      - source: id
        action: alias
        emit_as: customer_id
      - source: email
        action: hash
        emit_as: email_hash
        using: sha256_salted
      - source: ssn
        action: remove
      - source: country
        action: keep
    uniqueness: [customer_id]
  - name: orders
    kind: fact
    source: ops.orders
    emit_to: anl.fact_order
    columns:
      - source: id
        action: alias
        emit_as: order_id
      - source: amount
        action: keep
    computed:
      - name: revenue_cents
        expression: amount * 100
    fact_pk: [order_id]
    dim_mappings:
      - field: customer_key
        lookup: anl.dim_customer
        on:
          customer_id: customer_id
`

const testPolicyJSON = `{
  "pipelines": [
    {
      "name": "customers",
      "source": "ops.customers",
      "emit_to": "anl.dim_customer",
      "columns": [
        {"source": "id", "action": "alias", "emit_as": "customer_id"}
      ],
      "uniqueness": ["customer_id"]
    }
  ]
}`

func TestLoad(t *testing.T) {
	t.Parallel()

	writeFile := func(t *testing.T, name, contents string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), name)
		require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
		return path
	}

	t.Run("ok - yaml policy", func(t *testing.T) {
		t.Parallel()

		doc, err := Load(writeFile(t, "policy.yaml", testPolicyYAML))
		require.NoError(t, err)
		require.Len(t, doc.Pipelines, 2)

		customers := doc.Pipelines[0]
		require.Equal(t, "customers", customers.Name)
		require.Equal(t, KindDimension, customers.Kind)
		require.Equal(t, "ops.customers", customers.Source)
		require.Equal(t, "anl.dim_customer", customers.EmitTo)
		require.Equal(t, []string{"customer_id"}, customers.Uniqueness)
		// column order matters for rule evaluation, it must survive parsing
		require.Equal(t, []Column{
			{Source: "id", Rule: Rule{Action: ActionAlias, EmitAs: "customer_id"}},
			{Source: "email", Rule: Rule{Action: ActionHash, EmitAs: "email_hash", Using: "sha256_salted"}},
			{Source: "ssn", Rule: Rule{Action: ActionRemove}},
			{Source: "country", Rule: Rule{Action: ActionKeep}},
		}, customers.Columns)

		orders := doc.Pipelines[1]
		require.Equal(t, KindFact, orders.Kind)
		require.Equal(t, []ComputedField{{Name: "revenue_cents", Expression: "amount * 100"}}, orders.Computed)
		require.Equal(t, []DimMapping{
			{
				Field:  "customer_key",
				Lookup: "anl.dim_customer",
				On:     map[string]string{"customer_id": "customer_id"},
			},
		}, orders.DimMappings)
	})

	t.Run("ok - json policy", func(t *testing.T) {
		t.Parallel()

		doc, err := Load(writeFile(t, "policy.json", testPolicyJSON))
		require.NoError(t, err)
		require.Len(t, doc.Pipelines, 1)
		require.Equal(t, "customers", doc.Pipelines[0].Name)
	})

	t.Run("error - unknown field in document", func(t *testing.T) {
		t.Parallel()

		contents := testPolicyJSON[:len(testPolicyJSON)-1] + `, "piplines": []}`
		_, err := Load(writeFile(t, "policy.json", contents))
		require.Error(t, err)
	})

	t.Run("error - invalid document fails validation", func(t *testing.T) {
		t.Parallel()

		_, err := Load(writeFile(t, "policy.yaml", "pipelines: []"))
		require.ErrorIs(t, err, ErrNoPipelines)
	})

	t.Run("error - unsupported extension", func(t *testing.T) {
		t.Parallel()

		_, err := Load(writeFile(t, "policy.toml", "pipelines = []"))
		require.Error(t, err)
	})

	t.Run("error - missing file", func(t *testing.T) {
		t.Parallel()

		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.ErrorIs(t, err, os.ErrNotExist)
	})
}
