// Package res holds static content bundled into the desktop window.
package res

// AboutContent contains the Markdown content for the About dialog.
const AboutContent = `Listen to digitised recordings from an archival catalog.

**How it works:**
- Each disk is streamed as one audio file
- Tracks are time ranges read from the disk's cue sheet
- Liner notes open in your browser as a PDF

Items whose recordings cannot be reached show where to hear them in person.
`
