package mcpserver

const contractURI = "folio://scene-format"

// SceneFormatContract describes how Folio stores scene documents. LLM
// consumers should read it before calling save_scene.
const SceneFormatContract = `# Folio Scene Format Contract

Each scene is one file under ` + "`" + `<project>/manuscript/<sceneId>.md` + "`" + `.
Tools address scenes by the scene node id from ` + "`" + `get_structure` + "`" + `, never by path.

## Structure

` + "```" + `markdown
---
id: 9b2f6c1e-...            # scene node id, managed by Folio
title: Opening              # display title, also shown in the outline
order: 0                    # position among its siblings
status: draft               # draft, revised, final ...
wordCount: 1234             # recomputed on every save
pov: Aria                   # OPTIONAL point-of-view character
subtitle: null              # OPTIONAL
labels: []                  # OPTIONAL free-form labels
excludeFromAI: false        # when true, do not feed this scene to a model
summary: ""                 # OPTIONAL short synopsis
archived: false
createdAt: 2025-01-15T10:00:00.000Z
updatedAt: 2025-01-15T10:00:00.000Z
---

Scene content. The editor may store rich text as a JSON document;
plain prose is accepted as well.
` + "```" + `

## Rules

1. **save_scene replaces the content only.** Front matter is owned by Folio;
   do not include the ` + "`" + `---` + "`" + ` block in the content you send.
2. **Respect excludeFromAI.** Scenes with ` + "`" + `excludeFromAI: true` + "`" + ` must not be
   summarised, quoted or rewritten.
3. **Word count** is whitespace separated words of the content you send.
4. **Encoding** is UTF-8.
5. **Codex names** (characters, locations, lore) are listed by ` + "`" + `list_codex` + "`" + `;
   use them verbatim so scene links and search keep working.

## Covers

Project covers are set with ` + "`" + `set_cover_image` + "`" + ` from a base64 data URI.
Supported formats: png, jpeg, gif, webp, up to 10 MB.
`
