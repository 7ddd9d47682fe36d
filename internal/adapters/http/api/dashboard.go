package api

import (
	"net/http"
)

// dashboardHandler handles dashboard requests
type dashboardHandler struct{}

// newDashboardHandler creates a new dashboard handler
func newDashboardHandler() *dashboardHandler {
	return &dashboardHandler{}
}

// HandleDashboard handles GET /dashboard requests.
// The page renders /leaderboard client-side and offers a refresh button
// that invalidates the cache.
func (h *dashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write([]byte(dashboardHTML))
}

const dashboardHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8">
    <title>Leaderboard</title>
    <style>
      body{font-family:system-ui,sans-serif;margin:2rem;color:#222}
      table{border-collapse:collapse;width:100%;margin-top:1rem}
      th,td{padding:.4rem .6rem;border-bottom:1px solid #ddd;text-align:left}
      th{background:#f4f4f4}
      .msg{margin-top:1rem;color:#555}
      .err{color:#b00020}
      .controls>*{margin-right:.5rem}
    </style>
  </head>
  <body>
    <h1>Leaderboard</h1>
    <div class="controls">
      <select id="level"><option value="">All levels</option></select>
      <input id="search" placeholder="Search name or code">
      <button id="refresh">Refresh data</button>
      <a id="download" href="/leaderboard.csv">Download CSV</a>
    </div>
    <div id="msg" class="msg"></div>
    <table>
      <thead><tr><th>#</th><th>Name</th><th>Code</th><th>Level</th><th>Total</th><th>Done</th><th>Average</th><th>Last activity</th></tr></thead>
      <tbody id="rows"></tbody>
    </table>
    <script>
      const $ = (id) => document.getElementById(id);
      function params() {
        const p = new URLSearchParams();
        if ($('level').value) p.set('level', $('level').value);
        if ($('search').value) p.set('search', $('search').value);
        return p.toString();
      }
      async function loadLevels() {
        const body = await (await fetch('/levels')).json();
        for (const l of body.levels) {
          const o = document.createElement('option');
          o.value = l; o.textContent = l;
          $('level').appendChild(o);
        }
      }
      async function load() {
        const q = params();
        $('download').href = '/leaderboard.csv' + (q ? '?' + q : '');
        const body = await (await fetch('/leaderboard' + (q ? '?' + q : ''))).json();
        $('msg').className = body.status === 'error' ? 'msg err' : 'msg';
        $('msg').textContent = body.error || body.message || '';
        $('rows').innerHTML = '';
        for (const e of body.entries) {
          const tr = document.createElement('tr');
          for (const v of [e.rank, e.display_name, e.student_code, e.level, e.total_marks,
                           e.assignments_completed, Number(e.average_score).toFixed(2), e.last_activity || '']) {
            const td = document.createElement('td');
            td.textContent = v;
            tr.appendChild(td);
          }
          $('rows').appendChild(tr);
        }
      }
      $('level').addEventListener('change', load);
      $('search').addEventListener('input', load);
      $('refresh').addEventListener('click', async () => {
        await fetch('/cache/invalidate', {method: 'POST'});
        await load();
      });
      loadLevels().then(load);
    </script>
  </body>
</html>`
