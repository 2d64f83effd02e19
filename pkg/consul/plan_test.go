package consul

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conf-compose/pkg/model"
)

func TestPlanOps(t *testing.T) {
	docs := []model.Document{
		{Node: "A", Name: "A.conf", Data: []byte("a")},
		{Node: "B", Name: "B.conf", Data: []byte("b")},
	}
	existing := []string{"edge/nodes/Z", "edge/nodes/A", "edge/nodes/C"}

	ops, err := PlanOps("edge/nodes/", docs, []byte("{}"), existing)
	require.NoError(t, err)
	assert.Equal(t, []Op{
		{Verb: VerbSet, Key: "edge/nodes/A", Value: []byte("a")},
		{Verb: VerbSet, Key: "edge/nodes/B", Value: []byte("b")},
		{Verb: VerbSet, Key: "edge/nodes/_manifest", Value: []byte("{}")},
		{Verb: VerbDelete, Key: "edge/nodes/C"},
		{Verb: VerbDelete, Key: "edge/nodes/Z"},
	}, ops)
}

func TestPlanOpsWithoutManifestDropsOldOne(t *testing.T) {
	ops, err := PlanOps("p", []model.Document{{Node: "A", Data: []byte("a")}}, nil, []string{"p/_manifest"})
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, Op{Verb: VerbDelete, Key: "p/_manifest"}, ops[1])
}

func TestPlanOpsLimits(t *testing.T) {
	_, err := PlanOps("/", nil, nil, nil)
	assert.Error(t, err)

	docs := make([]model.Document, MaxTxnOps+1)
	for i := range docs {
		docs[i] = model.Document{Node: fmt.Sprintf("n%d", i)}
	}
	_, err = PlanOps("p", docs, nil, nil)
	assert.Error(t, err)

	_, err = PlanOps("p", docs[:MaxTxnOps], nil, nil)
	assert.NoError(t, err)
}
