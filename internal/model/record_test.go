package model_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirychukyurii/rundeck-bridge/internal/model"
)

func TestRecord(t *testing.T) {
	record := model.Record{
		"id":   "7",
		"name": []any{"sync"},
		"failedNodes": []any{map[string]any{
			"node": []any{map[string]any{"@attributes": map[string]string{"name": "web-1"}}},
		}},
		"date-started": []any{map[string]any{
			"@attributes": map[string]string{"unixtime": "1431536339809"},
			"@text":       "2015-05-13T16:58:59Z",
		}},
		"date-ended": "",
		"job":        model.Record{"id": "1", "averageDuration": "10000"},
	}

	assert.Equal(t, "7", record.Text("id"))
	assert.Equal(t, "sync", record.Text("name"))
	assert.Equal(t, "2015-05-13T16:58:59Z", record.Text("date-started"))
	assert.Equal(t, "1431536339809", record.Attribute("date-started", "unixtime"))
	assert.Equal(t, "", record.Text("missing"))

	assert.True(t, record.Has("failedNodes"))
	assert.False(t, record.Has("date-ended"))
	assert.False(t, record.Has("missing"))
	assert.False(t, model.Record{"failedNodes": []any{""}}.Has("failedNodes"))

	require.NotNil(t, record.Nested("job"))
	assert.Equal(t, "10000", record.Nested("job").Text("averageDuration"))
	assert.Nil(t, record.Nested("id"))
}

func TestRecordSet(t *testing.T) {
	set := model.NewRecordSet()
	set.Put("2", model.Record{"name": "b"})
	set.Put("1", model.Record{"name": "a"})
	set.Put("2", model.Record{"name": "c"})

	assert.Equal(t, 2, set.Len())
	assert.Equal(t, []string{"2", "1"}, set.Keys())

	record, ok := set.Get("2")
	require.True(t, ok)
	assert.Equal(t, "c", record.Text("name"))

	_, ok = set.Get("3")
	assert.False(t, ok)

	data, err := json.Marshal(set)
	require.NoError(t, err)
	assert.Equal(t, `{"2":{"name":"c"},"1":{"name":"a"}}`, string(data))

	var visited []string
	set.Each(func(id string, _ model.Record) bool {
		visited = append(visited, id)
		return false
	})
	assert.Equal(t, []string{"2"}, visited)
}
