package report

// ReportTemplate is the HTML template for the valuation report.
// It is embedded as a Go constant with no external file dependencies.
const ReportTemplate = `<!DOCTYPE html>
<html lang="ko">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>
  :root {
    --bg: #ffffff;
    --text: #1a1a2e;
    --muted: #6b7280;
    --border: #e5e7eb;
    --accent: #2563eb;
    --green: #16a34a;
    --red: #dc2626;
    --section-bg: #f8fafc;
  }
  * { margin: 0; padding: 0; box-sizing: border-box; }
  body {
    font-family: -apple-system, BlinkMacSystemFont, 'Apple SD Gothic Neo', 'Malgun Gothic', sans-serif;
    color: var(--text);
    background: var(--bg);
    line-height: 1.6;
    max-width: 900px;
    margin: 0 auto;
    padding: 20px;
  }
  h1 { font-size: 1.5rem; margin-bottom: 4px; font-weight: 600; }
  h2 { font-size: 1.2rem; margin: 24px 0 12px; padding-bottom: 6px; border-bottom: 2px solid var(--accent); font-weight: 600; }
  h3 { font-size: 1rem; margin: 16px 0 8px; font-weight: 600; }
  p { margin: 6px 0; }
  .muted { color: var(--muted); font-size: 0.85rem; }

  /* Header */
  .header {
    display: flex;
    justify-content: space-between;
    align-items: flex-start;
    border-bottom: 3px solid var(--accent);
    padding-bottom: 12px;
    margin-bottom: 16px;
  }
  .header-right { text-align: right; }
  .ticker-badge {
    display: inline-block;
    background: var(--accent);
    color: white;
    padding: 2px 12px;
    border-radius: 4px;
    font-weight: 700;
    margin-right: 8px;
  }

  /* Quote bar */
  .quote-bar {
    display: grid;
    grid-template-columns: repeat(2, 1fr);
    gap: 8px;
    background: var(--section-bg);
    padding: 12px;
    border-radius: 8px;
  }
  .quote-item { text-align: center; }
  .quote-item .label { font-size: 0.75rem; color: var(--muted); }
  .quote-item .value { font-size: 1.1rem; font-weight: 600; }

  /* Highlight table */
  table { width: 100%; border-collapse: collapse; margin: 8px 0 16px; font-size: 0.9rem; }
  th { background: var(--section-bg); padding: 8px; font-weight: 600; text-align: right; }
  td { padding: 8px; border-bottom: 1px solid var(--border); text-align: right; }
  th:first-child, td:first-child { text-align: left; }

  /* Valuation cards */
  .valuation {
    padding: 16px;
    border-radius: 8px;
    margin: 12px 0;
  }
  .valuation.under { background: #dcfce7; border-left: 5px solid var(--green); }
  .valuation.over { background: #fef2f2; border-left: 5px solid var(--red); }
  .valuation.none { background: #fefce8; border-left: 5px solid #eab308; }
  .valuation .fair { font-size: 1.4rem; font-weight: 700; }

  .chart-container { margin: 12px 0; overflow-x: auto; }
  .chart-container svg { max-width: 100%; height: auto; }

  .section { margin: 20px 0; }
  .section-summary {
    background: var(--section-bg);
    padding: 12px;
    border-radius: 6px;
    margin: 8px 0;
    font-size: 0.95rem;
    white-space: pre-line;
  }
  .formula { font-family: monospace; background: var(--section-bg); padding: 8px 12px; border-radius: 6px; }

  .footer {
    margin-top: 30px;
    padding-top: 12px;
    border-top: 2px solid var(--border);
    font-size: 0.8rem;
    color: var(--muted);
    text-align: center;
  }

  @media print {
    body { max-width: 100%; padding: 10px; }
    .section { page-break-inside: avoid; }
  }
</style>
</head>
<body>

<!-- ═══════ HEADER ═══════ -->
<div class="header">
  <div class="header-left">
    <h1><span class="ticker-badge">{{.Ticker}}</span> {{.CompanyName}}</h1>
    <p class="muted">{{.Title}}</p>
  </div>
  <div class="header-right">
    <p class="muted">기준: {{.GeneratedAt}}</p>
    <p class="muted">{{.Author}}</p>
  </div>
</div>

<!-- ═══════ QUOTE BAR ═══════ -->
{{if .HasPrice}}
<div class="quote-bar">
  <div class="quote-item">
    <div class="label">현재주가</div>
    <div class="value">{{.LastPrice}}</div>
  </div>
  <div class="quote-item">
    <div class="label">시가총액</div>
    <div class="value">{{if .MarketCap}}{{.MarketCap}}{{else}}-{{end}}</div>
  </div>
</div>
{{end}}

{{if .Overview}}
<div class="section">
  <h2>기업 개요</h2>
  <div class="section-summary">{{.Overview}}</div>
</div>
{{end}}

{{if .HasFinancials}}
<!-- ═══════ HIGHLIGHTS ═══════ -->
<div class="section">
  <h2>📊 재무 하이라이트</h2>
  <table>
    <thead><tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr></thead>
    <tbody>
    {{range .Rows}}
    <tr><td>{{.Label}}</td>{{range .Values}}<td>{{.}}</td>{{end}}</tr>
    {{end}}
    </tbody>
  </table>
  {{if .Summary}}<div class="section-summary">{{.Summary}}</div>{{end}}
  {{if .ROEChart}}<div class="chart-container">{{.ROEChart}}</div>{{end}}
</div>

<!-- ═══════ VALUATION ═══════ -->
<div class="section">
  <h2>💰 적정주가 분석 (S-RIM, {{.Basis}} 기준)</h2>
  {{range .Valuations}}
  <div class="valuation {{.VerdictClass}}">
    <h3>{{.Title}}</h3>
    <div class="fair">{{.FairValue}}</div>
    <p class="muted">적용 ROE {{.AppliedROE}} · {{.Verdict}}</p>
    <p>{{.Message}}</p>
  </div>
  {{end}}
  {{if .FairValueChart}}<div class="chart-container">{{.FairValueChart}}</div>{{end}}
</div>

<!-- ═══════ AUDIT TRAIL ═══════ -->
<div class="section">
  <h2>🧮 산출 근거</h2>
  <p class="formula">적정주가 = BPS + (BPS × (ROE - 요구수익률) / 요구수익률)</p>
  <ul>
    <li><strong>BPS</strong>: {{.BPS}} ({{.BPSDate}})</li>
    <li><strong>요구수익률</strong>: {{.RequiredReturn}}</li>
    {{range .Valuations}}<li><strong>{{.Title}}</strong>: {{.Observations}}</li>{{end}}
    {{if .GrahamNumber}}<li><strong>Graham Number</strong>: {{.GrahamNumber}}</li>{{end}}
  </ul>
</div>
{{else}}
<div class="section">
  <div class="valuation none">재무 데이터를 불러올 수 없어 분석할 수 없습니다.</div>
</div>
{{end}}

<!-- ═══════ FOOTER ═══════ -->
<div class="footer">
  <p>본 자료는 투자 판단의 참고용이며 투자 권유가 아닙니다.</p>
  <p>{{.Author}} · query {{.QueryID}}</p>
</div>

</body>
</html>`
