package api

import (
	"github.com/gofiber/fiber/v2"
)

// UIHandler serves the single-page frontend. The page, stylesheet and script
// are compiled in so the binary is self-contained.
type UIHandler struct{}

func NewUIHandler() *UIHandler {
	return &UIHandler{}
}

func (h UIHandler) HandleIndex(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(indexHTML)
}

func (h UIHandler) HandleStyles(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/css; charset=utf-8")
	return c.SendString(stylesCSS)
}

func (h UIHandler) HandleScript(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/javascript; charset=utf-8")
	return c.SendString(scriptJS)
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>IEC</title>
  <link rel="stylesheet" href="/styles.css">
</head>
<body>
  <div class="container">
    <h1>Individual Educational Chatbot</h1>

    <section class="panel">
      <h2>Sources</h2>
      <textarea id="urls" rows="2" placeholder="Enter URLs, comma separated"></textarea>
      <input type="file" id="pdfs" accept="application/pdf" multiple>
      <button id="extract-btn">Extract content</button>
      <button id="clear-btn">Clear</button>
      <pre id="extracted-content"></pre>
    </section>

    <section class="panel">
      <h2>Stored extractions</h2>
      <ul id="extraction-list"></ul>
    </section>

    <section class="panel">
      <h2>Ask</h2>
      <select id="competence">
        <option value="">Select a skill level</option>
        <option>Beginner</option>
        <option>Intermediate</option>
        <option>Advanced</option>
      </select>
      <select id="model"></select>
      <textarea id="question" rows="3" placeholder="Your question"></textarea>
      <button id="ask-btn">Ask</button>
      <div id="answer"></div>
      <audio id="answer-audio" controls hidden></audio>
    </section>
  </div>
  <script src="/script.js"></script>
</body>
</html>
`

const stylesCSS = `body {
  font-family: "Segoe UI", Arial, sans-serif;
  background: #f4f6f8;
  margin: 0;
}

.container {
  max-width: 860px;
  margin: 0 auto;
  padding: 24px;
}

h1 {
  color: #2c3e50;
}

.panel {
  background: #fff;
  border-radius: 8px;
  box-shadow: 0 1px 4px rgba(0, 0, 0, 0.1);
  padding: 16px;
  margin-bottom: 16px;
}

textarea,
select,
input[type="file"] {
  display: block;
  width: 100%;
  margin-bottom: 8px;
  box-sizing: border-box;
}

button {
  background: #3498db;
  border: none;
  border-radius: 4px;
  color: #fff;
  cursor: pointer;
  margin-right: 8px;
  padding: 8px 16px;
}

button:hover {
  background: #2980b9;
}

#extracted-content {
  background: #f8f9fa;
  max-height: 200px;
  overflow-y: auto;
  white-space: pre-wrap;
}

#extraction-list li {
  cursor: pointer;
  margin-bottom: 4px;
}

#answer {
  margin-top: 12px;
  white-space: pre-wrap;
}
`

const scriptJS = `const conversationId = crypto.randomUUID();

async function refreshExtractions() {
  const res = await fetch('/list_extractions');
  const items = await res.json();
  const list = document.getElementById('extraction-list');
  list.innerHTML = '';
  for (const item of items) {
    const li = document.createElement('li');
    const box = document.createElement('input');
    box.type = 'checkbox';
    box.value = item.name;
    box.className = 'extraction-box';
    li.appendChild(box);
    li.appendChild(document.createTextNode(' ' + item.name + ' (' + item.date + ')'));
    const del = document.createElement('button');
    del.textContent = 'x';
    del.onclick = async () => {
      await fetch('/delete_extraction/' + encodeURIComponent(item.name), { method: 'DELETE' });
      refreshExtractions();
    };
    li.appendChild(del);
    list.appendChild(li);
  }
}

async function refreshModels() {
  const res = await fetch('/list_models');
  const data = await res.json();
  const sel = document.getElementById('model');
  sel.innerHTML = '';
  for (const name of data.models || []) {
    const opt = document.createElement('option');
    opt.value = name;
    opt.textContent = name;
    sel.appendChild(opt);
  }
}

document.getElementById('extract-btn').onclick = async () => {
  const form = new FormData();
  form.append('urls', document.getElementById('urls').value);
  for (const file of document.getElementById('pdfs').files) {
    form.append('pdfs', file);
  }
  const res = await fetch('/extract_content', { method: 'POST', body: form });
  const data = await res.json();
  document.getElementById('extracted-content').textContent = data.content;
  refreshExtractions();
};

document.getElementById('clear-btn').onclick = async () => {
  await fetch('/clear_extracted', { method: 'POST' });
  document.getElementById('extracted-content').textContent = '';
};

document.getElementById('ask-btn').onclick = async () => {
  const selected = Array.from(document.querySelectorAll('.extraction-box:checked')).map(b => b.value);
  const body = {
    conversation_id: conversationId,
    competence_level: document.getElementById('competence').value,
    question: document.getElementById('question').value,
    selected_extractions: selected,
    selected_model: document.getElementById('model').value,
    content: document.getElementById('extracted-content').textContent,
    urls: document.getElementById('urls').value,
  };
  const res = await fetch('/ask_question', {
    method: 'POST',
    headers: { 'Content-Type': 'application/json' },
    body: JSON.stringify(body),
  });
  const data = await res.json();
  document.getElementById('answer').textContent = data.response;
  if (data.audio_url) {
    pollAudio(data.audio_url, 20);
  }
};

function pollAudio(url, attempts) {
  if (attempts <= 0) return;
  fetch(url, { method: 'HEAD' }).then(res => {
    if (res.ok) {
      const audio = document.getElementById('answer-audio');
      audio.src = url;
      audio.hidden = false;
    } else {
      setTimeout(() => pollAudio(url, attempts - 1), 1500);
    }
  });
}

refreshExtractions();
refreshModels();
`
