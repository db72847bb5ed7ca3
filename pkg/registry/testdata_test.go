package registry

const corpUserInfoYAML = `
type: record
name: CorpUserInfo
namespace: com.example.identity
Aspect:
  name: corpUserInfo
fields:
  - name: displayName
    type: string
    Searchable:
      fieldType: TEXT_PARTIAL
      queryByDefault: true
  - name: email
    type: string
    optional: true
    Searchable:
      fieldType: KEYWORD
  - name: manager
    type: com.example.common.Urn
    optional: true
`

const urnYAML = `
type: typeref
name: Urn
namespace: com.example.common
ref: string
`

const ownershipJSON = `{
  "type": "record",
  "name": "Ownership",
  "namespace": "com.example.common",
  "Aspect": {"name": "ownership"},
  "fields": [
    {"name": "owners", "type": {"type": "array", "items": {
      "type": "record", "name": "Owner", "fields": [
        {"name": "owner", "type": "Urn"},
        {"name": "type", "type": "string"}
      ]}},
     "Searchable": {"/*/owner": {"fieldName": "owners", "fieldType": "URN", "addToFilters": true}}}
  ]
}`

// duplicateNameJSON declares the field name "name" at two paths
const duplicateNameJSON = `{
  "type": "record",
  "name": "Broken",
  "namespace": "com.example",
  "Aspect": {"name": "broken"},
  "fields": [
    {"name": "a", "type": {"type": "record", "name": "A", "fields": [
      {"name": "name", "type": "string", "Searchable": {}}]}},
    {"name": "b", "type": {"type": "record", "name": "B", "fields": [
      {"name": "name", "type": "string", "Searchable": {}}]}}
  ]
}`

func validDocs() []Document {
	return []Document{
		{Name: "common/ownership.json", Content: []byte(ownershipJSON)},
		{Name: "common/urn.yaml", Content: []byte(urnYAML)},
		{Name: "identity/corp_user_info.yaml", Content: []byte(corpUserInfoYAML)},
	}
}
