package mysql

const selectAllSQL = `
SELECT id, doc FROM records
WHERE collection = ?
ORDER BY id
`

const selectByIDSQL = `
SELECT id, doc FROM records
WHERE collection = ? AND id = ?
`

const selectByIDForUpdateSQL = selectByIDSQL + ` FOR UPDATE`

// The JSON path is bound as a parameter; numbers compare through their text form.
const selectByParentSQL = `
SELECT id, doc FROM records
WHERE collection = ?
  AND JSON_UNQUOTE(JSON_EXTRACT(doc, ?)) = ?
ORDER BY id
`

const nextIDSQL = `
SELECT COALESCE(MAX(id), 0) + 1 FROM records
WHERE collection = ?
FOR UPDATE
`

const insertSQL = `
INSERT INTO records (collection, id, doc)
VALUES (?, ?, ?)
`

const upsertSQL = `
INSERT INTO records (collection, id, doc)
VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE
  doc        = VALUES(doc),
  updated_at = CURRENT_TIMESTAMP
`

const updateDocSQL = `
UPDATE records SET doc = ?, updated_at = CURRENT_TIMESTAMP
WHERE collection = ? AND id = ?
`

const deleteSQL = `
DELETE FROM records
WHERE collection = ? AND id = ?
`
