package evaluate

import (
	"github.com/tidwall/gjson"

	"github.com/jonathan/resume-evaluator/internal/types"
)

// ParseVerdicts reads {"query": "...", "result": [[id, flag, explanation], ...]}.
// Items that are not arrays are skipped. When the body is not JSON or result is
// missing or not an array, it returns no verdicts and a *ParseError. The echoed
// query is returned whenever it is a string.
func ParseVerdicts(body []byte) ([]types.VerdictRaw, string, error) {
	if !gjson.ValidBytes(body) {
		return nil, "", &ParseError{Message: "response is not valid JSON"}
	}

	root := gjson.ParseBytes(body)

	var echoed string
	if q := root.Get("query"); q.Type == gjson.String {
		echoed = q.String()
	}

	result := root.Get("result")
	if !result.IsArray() {
		return nil, echoed, &ParseError{Message: "result is missing or not an array"}
	}

	verdicts := []types.VerdictRaw{}
	for _, item := range result.Array() {
		if !item.IsArray() {
			continue
		}
		fields := item.Array()
		v := types.VerdictRaw{}
		if len(fields) > 0 {
			v.ID = fields[0].String()
		}
		if len(fields) > 1 {
			v.Flag = fields[1].Value()
		}
		if len(fields) > 2 {
			v.Explanation = fields[2].String()
		}
		verdicts = append(verdicts, v)
	}
	return verdicts, echoed, nil
}
