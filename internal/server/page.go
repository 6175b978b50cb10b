package server

// indexHTML is the control page. It polls /status once a second and keeps a
// beforeunload handler installed exactly while the session reports guard.
const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Rehearse</title>
    <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/@picocss/pico@2/css/pico.min.css">
</head>
<body>
<main class="container">
    <h1>Rehearse</h1>
    <p id="message">Loading...</p>
    <article>
        <header><strong id="progress"></strong> <small id="category"></small></header>
        <h3 id="question"></h3>
        <p>Remaining <strong id="remaining">00:00</strong> &middot; Elapsed <strong id="elapsed">00:00</strong></p>
        <details id="tips-box"><summary>Tips</summary><p id="tips"></p></details>
    </article>
    <div role="group">
        <button data-action="start">Start</button>
        <button data-action="pause">Pause</button>
        <button data-action="resume">Resume</button>
        <button data-action="previous">Previous</button>
        <button data-action="next">Next</button>
        <button data-action="stop">Stop</button>
        <button data-action="restart">Restart</button>
    </div>
    <div role="group">
        <button class="secondary" data-action="device/retry">Refresh device</button>
        <button class="secondary" data-action="device/toggle/video">Toggle video</button>
        <button class="secondary" data-action="device/toggle/audio">Toggle audio</button>
        <button class="secondary" data-action="recorder/retry">Retry recorder</button>
    </div>
    <article id="summary" hidden>
        <header><strong id="summary-title"></strong></header>
        <p>Overall <strong id="overall"></strong> &middot; Answered <span id="answered"></span></p>
    </article>
    <p><a href="/api/sessions">History (JSON)</a></p>
</main>
<script>
const guardHandler = (e) => { e.preventDefault(); e.returnValue = ""; return ""; };
let guarded = false;

function setGuard(on) {
    if (on === guarded) return;
    guarded = on;
    if (on) window.addEventListener("beforeunload", guardHandler);
    else window.removeEventListener("beforeunload", guardHandler);
}

async function act(path) {
    const res = await fetch("/" + path, { method: "POST" });
    const body = await res.json();
    if (!body.success) document.getElementById("message").textContent = body.error;
    refresh();
}

async function refresh() {
    const res = await fetch("/status");
    const st = await res.json();
    const s = st.session;
    setGuard(s.guard);
    document.getElementById("message").textContent = st.last_error || st.message || st.status;
    document.getElementById("progress").textContent =
        "Question " + (s.currentQuestionIndex + 1) + " of " + s.totalQuestions;
    document.getElementById("remaining").textContent = st.remaining;
    document.getElementById("elapsed").textContent = st.elapsed;
    const q = s.question || {};
    document.getElementById("question").textContent = q.question || "";
    document.getElementById("category").textContent = q.category || "";
    document.getElementById("tips").textContent = q.tips || "";
    const summary = document.getElementById("summary");
    summary.hidden = !s.summary;
    if (s.summary) {
        document.getElementById("summary-title").textContent = s.summary.title;
        document.getElementById("overall").textContent = s.summary.overallScore + "%";
        document.getElementById("answered").textContent =
            s.summary.questionsAnswered + " / " + s.summary.totalQuestions;
    }
}

document.querySelectorAll("button[data-action]").forEach((b) =>
    b.addEventListener("click", () => act(b.dataset.action)));
setInterval(refresh, 1000);
refresh();
</script>
</body>
</html>`
