package document

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finops-claw-gang/snapdrift/internal/faults"
)

func TestParse_Variants(t *testing.T) {
	t.Parallel()

	n, err := Parse([]byte(`{"name":"vm1","count":3,"ratio":0.5,"on":true,"tags":null,"zones":["1","2"]}`))
	require.NoError(t, err)
	assert.Equal(t, KindMapping, n.Kind())
	assert.Equal(t, []string{"count", "name", "on", "ratio", "tags", "zones"}, n.Keys())

	name, ok := n.Field("name")
	require.True(t, ok)
	assert.Equal(t, KindString, name.Kind())
	assert.Equal(t, "vm1", name.Str())

	count, _ := n.Field("count")
	assert.Equal(t, KindNumber, count.Kind())
	assert.Equal(t, "3", count.NumberText())

	on, _ := n.Field("on")
	assert.Equal(t, KindBool, on.Kind())
	assert.True(t, on.BoolValue())

	tags, ok := n.Field("tags")
	require.True(t, ok)
	assert.True(t, tags.IsNull())

	zones, _ := n.Field("zones")
	assert.Equal(t, KindSequence, zones.Kind())
	assert.Equal(t, 2, zones.Len())
	assert.Equal(t, "2", zones.Index(1).Str())
	assert.True(t, zones.Index(5).IsNull())
}

func TestParse_Malformed(t *testing.T) {
	t.Parallel()

	for name, raw := range map[string]string{
		"empty":     "",
		"truncated": `{"a":`,
		"trailing":  `{"a":1} {"b":2}`,
		"garbage":   "not json",
	} {
		_, err := Parse([]byte(raw))
		require.Error(t, err, name)
		assert.True(t, faults.IsCategory(err, faults.ParseError), name)
	}
}

func TestParse_DepthGuard(t *testing.T) {
	t.Parallel()

	deep := strings.Repeat("[", MaxDepth+2) + strings.Repeat("]", MaxDepth+2)
	_, err := Parse([]byte(deep))
	require.Error(t, err)
	assert.True(t, faults.IsCategory(err, faults.ParseError))

	ok := strings.Repeat("[", 10) + strings.Repeat("]", 10)
	_, err = Parse([]byte(ok))
	assert.NoError(t, err)
}

func TestNumbersEqual(t *testing.T) {
	t.Parallel()

	assert.True(t, NumbersEqual("1", "1.0"))
	assert.True(t, NumbersEqual("1e3", "1000"))
	assert.True(t, NumbersEqual("-0.5", "-5e-1"))
	assert.False(t, NumbersEqual("1", "2"))
	assert.False(t, NumbersEqual("12345678901234567890", "12345678901234567891"))
	assert.False(t, NumbersEqual("x", "1"))
}

func TestNormalizeIdentifier(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		"/subscriptions/abc/resourcegroups/rg/providers/microsoft.compute/virtualmachines/vm1",
		NormalizeIdentifier("  /subscriptions/ABC/resourceGroups/RG/providers/Microsoft.Compute/virtualMachines/vm1 "),
	)
}

func TestLookup(t *testing.T) {
	t.Parallel()

	n, err := Parse([]byte(`{"properties":{"vmId":"abc","hardwareProfile":{"vmSize":"Standard_D2s_v3"}}}`))
	require.NoError(t, err)

	v, ok := n.Lookup("properties.hardwareProfile.vmSize")
	require.True(t, ok)
	assert.Equal(t, "Standard_D2s_v3", v.Str())

	_, ok = n.Lookup("properties.missing")
	assert.False(t, ok)
	_, ok = n.Lookup("")
	assert.False(t, ok)
}

func TestJSON_SortedAndCompact(t *testing.T) {
	t.Parallel()

	n, err := Parse([]byte(`{ "b": [1, 2.50], "a": "x<y", "c": {"z": false, "y": null} }`))
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x<y","b":[1,2.50],"c":{"y":null,"z":false}}`, n.Text())
}

func TestNode_JSONRoundTrip(t *testing.T) {
	t.Parallel()

	type holder struct {
		Before Node `json:"before"`
		After  Node `json:"after"`
	}
	in := holder{Before: Null(), After: Mapping(map[string]Node{"size": Number("4")})}

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"before":null,"after":{"size":4}}`, string(data))

	var out holder
	require.NoError(t, json.Unmarshal(data, &out))
	assert.True(t, out.Before.IsNull())
	size, ok := out.After.Field("size")
	require.True(t, ok)
	assert.Equal(t, "4", size.NumberText())
}

func TestFromValue(t *testing.T) {
	t.Parallel()

	n, err := FromValue(map[string]any{"n": float64(2), "i": 7, "list": []any{"a", true}})
	require.NoError(t, err)
	assert.Equal(t, `{"i":7,"list":["a",true],"n":2}`, n.Text())

	_, err = FromValue(struct{}{})
	assert.Error(t, err)
}

func TestFilter_DropsVolatileFields(t *testing.T) {
	t.Parallel()

	f, err := CompileFilter(`del(.etag, .properties.provisioningState)`)
	require.NoError(t, err)
	assert.Equal(t, `del(.etag, .properties.provisioningState)`, f.String())

	n, err := f.Apply([]byte(`{"etag":"W/1","name":"vm1","properties":{"provisioningState":"Succeeded","big":12345678901234567890}}`))
	require.NoError(t, err)
	assert.Equal(t, `{"name":"vm1","properties":{"big":12345678901234567890}}`, n.Text())
}

func TestFilter_EmptyIsIdentity(t *testing.T) {
	t.Parallel()

	f, err := CompileFilter("  ")
	require.NoError(t, err)
	assert.Nil(t, f)

	n, err := f.Apply([]byte(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, n.Text())
}

func TestFilter_Errors(t *testing.T) {
	t.Parallel()

	_, err := CompileFilter(`del(`)
	require.Error(t, err)
	assert.True(t, faults.IsCategory(err, faults.ConfigError))

	f, err := CompileFilter(`error("boom")`)
	require.NoError(t, err)
	_, err = f.Apply([]byte(`{}`))
	require.Error(t, err)
	assert.True(t, faults.IsCategory(err, faults.ParseError))
}
