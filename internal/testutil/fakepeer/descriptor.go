package fakepeer

// DefaultDescriptor is served by /json/protocol unless replaced.
const DefaultDescriptor = `{
  "version": {"major": "1", "minor": "3"},
  "domains": [
    {
      "domain": "Foo",
      "types": [{"id": "Qux", "type": "object", "properties": [{"name": "a", "type": "string"}]}],
      "commands": [{"name": "bar", "parameters": [{"name": "x", "type": "string", "optional": true}]}],
      "events": [{"name": "baz", "parameters": [{"name": "n", "type": "integer"}]}]
    },
    {
      "domain": "Page",
      "types": [{"id": "FrameId", "type": "string"}],
      "commands": [
        {"name": "enable"},
        {"name": "navigate", "parameters": [{"name": "url", "type": "string"}], "returns": [{"name": "frameId", "$ref": "FrameId"}]}
      ],
      "events": [
        {"name": "loadEventFired", "parameters": [{"name": "timestamp", "type": "number"}]},
        {"name": "frameNavigated", "parameters": [{"name": "frame", "type": "object"}]}
      ]
    }
  ]
}`
