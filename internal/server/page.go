package server

import "html/template"

// The page is a thin client: every entry arrives as server-rendered HTML and
// clicking a summary posts its data-pos back to the toggle endpoint.
var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8" />
<meta name="viewport" content="width=device-width, initial-scale=1" />
<title>flatval {{.Version}}</title>
<style>
body { font-family: ui-monospace, monospace; margin: 0; background: #1e1e1e; color: #ddd; }
#entries { padding: 0.5em 1em; }
.entry { border-bottom: 1px solid #333; padding: 0.3em 0; }
.entry .input { color: #8ab4f8; }
.entry .input::before { content: "> "; color: #666; }
.entry.error .output, .node.fault { color: #f28b82; }
.entry.fallback .output { font-style: italic; }
.children { padding-left: 1.2em; }
.label, .sep { color: #999; }
.string { color: #ce9178; } .number, .nan, .infinity { color: #b5cea8; }
.boolean, .null, .undefined { color: #569cd6; } .date, .function { color: #c586c0; }
.cycle { color: #888; font-style: italic; }
summary { cursor: pointer; list-style: none; }
form { display: flex; gap: 0.5em; padding: 0.5em 1em; border-top: 1px solid #333; }
textarea { flex: 1; background: #111; color: #ddd; border: 1px solid #444; font: inherit; }
</style>
</head>
<body>
<div id="entries"></div>
<form id="prompt">
<textarea id="code" rows="2" placeholder="Enter an expression"></textarea>
<button type="submit">Run</button>
<button type="button" id="clear">Clear</button>
<input id="filter" placeholder="Filter" />
</form>
<script>
(() => {
  let session = null;
  // Submitted inputs, oldest first; back counts from the newest, -1 is a fresh line.
  let inputs = [], back = -1;
  const entries = document.getElementById("entries");
  const code = document.getElementById("code");
  const filter = document.getElementById("filter");
  const json = (r) => r.ok ? r.json() : r.text().then((t) => Promise.reject(t));
  const api = (method, path, body) => fetch("/api/sessions" + path, {
    method, headers: {"Content-Type": "application/json"}, body: body && JSON.stringify(body),
  }).then(json);

  const place = (e) => {
    const old = entries.querySelector('[data-entry="' + e.id + '"]');
    const tpl = document.createElement("template");
    tpl.innerHTML = e.html;
    if (old) old.replaceWith(tpl.content); else entries.appendChild(tpl.content);
  };
  const load = () => api("GET", "/" + session + "/entries?filter=" + encodeURIComponent(filter.value))
    .then((list) => { entries.innerHTML = ""; list.forEach(place); });
  const start = () => api("POST", "").then((r) => { session = r.session_id; load(); });

  entries.addEventListener("click", (ev) => {
    const summary = ev.target.closest("summary");
    if (!summary) return;
    ev.preventDefault();
    const id = summary.closest(".entry").dataset.entry;
    api("POST", "/" + session + "/entries/" + id + "/toggle", {pos: summary.parentElement.dataset.pos}).then(place);
  });
  document.getElementById("prompt").addEventListener("submit", (ev) => {
    ev.preventDefault();
    if (!code.value.trim()) return;
    api("POST", "/" + session + "/eval", {code: code.value}).then(place);
    inputs.push(code.value);
    back = -1;
    code.value = "";
  });
  const recall = (step) => {
    if (!inputs.length) return;
    back = step > 0 ? Math.min(inputs.length - 1, back + 1) : back - 1;
    code.value = back < 0 ? "" : inputs[inputs.length - 1 - back];
    if (back < 0) back = -1;
  };
  code.addEventListener("keydown", (ev) => {
    if (ev.key === "Enter" && !ev.shiftKey) { ev.preventDefault(); document.getElementById("prompt").requestSubmit(); return; }
    const multiline = code.value.includes("\n");
    if (ev.key === "ArrowUp" && !multiline) { ev.preventDefault(); recall(1); }
    if (ev.key === "ArrowDown" && !multiline && back >= 0) { ev.preventDefault(); recall(-1); }
  });
  document.getElementById("clear").addEventListener("click", () =>
    api("DELETE", "/" + session).then((r) => {
      session = r.session_id;
      entries.innerHTML = "";
      filter.value = "";
      inputs = [];
      back = -1;
    }));
  filter.addEventListener("input", load);
  start();
})();
</script>
</body>
</html>
`))
