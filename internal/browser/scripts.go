package browser

// BindingName is the page function the capture listeners report through.
const BindingName = "__smartfillObserve"

// ToastID is the id of the injected notice element.
const ToastID = "smartfill-toast"

const controlSelector = "input,textarea,select"

// labelMapJS declares smartfillLabels, which maps each control to the trimmed
// text of its label. A label's for attribute wins over nesting and later
// labels overwrite earlier ones.
const labelMapJS = `
  const smartfillLabels = () => {
  const map = new Map();
  document.querySelectorAll("label").forEach(l => {
    const txt = (l.innerText || "").trim();
    const forId = l.getAttribute("for");
    if (forId) {
      const inp = document.getElementById(forId);
      if (inp) map.set(inp, txt);
    } else {
      const inp = l.querySelector("input,textarea,select");
      if (inp) map.set(inp, txt);
    }
  });
  return map;
  };
`

// describeScript returns the evidence of every control in document order.
const describeScript = `
() => {` + labelMapJS + `
  const labels = smartfillLabels();
  return Array.from(document.querySelectorAll("input,textarea,select")).map(el => ({
    tag: el.tagName.toLowerCase(),
    type: el.type || "text",
    name: el.getAttribute("name") || "",
    id: el.id || "",
    placeholder: el.getAttribute("placeholder") || "",
    label: labels.get(el) || "",
  }));
}
`

// visibleTextScript collects visible text nodes, each prefixed by a space,
// up to the given limit, lower-cased.
const visibleTextScript = `
(limit) => {
  if (!document.body) return "";
  const walker = document.createTreeWalker(document.body, NodeFilter.SHOW_TEXT, {
    acceptNode: (node) => {
      const t = node.textContent.trim();
      if (!t) return NodeFilter.FILTER_REJECT;
      if (!node.parentElement) return NodeFilter.FILTER_REJECT;
      const style = window.getComputedStyle(node.parentElement);
      if (style && (style.visibility === "hidden" || style.display === "none")) return NodeFilter.FILTER_REJECT;
      return NodeFilter.FILTER_ACCEPT;
    }
  });
  let collected = "";
  while (walker.nextNode() && collected.length < limit) {
    const t = walker.currentNode.textContent.trim();
    if (t) collected += " " + t;
  }
  return collected.slice(0, limit).toLowerCase();
}
`

// captureScript installs capture-phase listeners that report control
// snapshots to the binding. It is idempotent per document.
const captureScript = `
(() => {
  if (window.__smartfillCapture) return;
  window.__smartfillCapture = true;
` + labelMapJS + `

  const report = (kind, e) => {
    const el = e.target;
    if (!el || !("value" in el) || typeof window.` + BindingName + ` !== "function") return;
    if (String(el.type || "").toLowerCase() === "password") return;
    const labels = smartfillLabels();
    window.` + BindingName + `({
      kind: kind,
      name: el.getAttribute("name") || "",
      id: el.id || "",
      placeholder: el.getAttribute("placeholder") || "",
      label: labels.get(el) || "",
      type: el.type || "text",
      value: el.value || "",
    });
  };

  document.addEventListener("change", e => report("change", e), true);
  document.addEventListener("blur", e => report("blur", e), true);
  document.addEventListener("input", e => report("input", e), true);
})();
`

// toastScript shows msg in a single notice element that removes itself
// after ms milliseconds. A new toast replaces the text and restarts the timer.
const toastScript = `
([msg, ms]) => {
  let t = document.getElementById("` + ToastID + `");
  if (!t) {
    t = document.createElement("div");
    t.id = "` + ToastID + `";
    t.style.cssText = "position:fixed;bottom:16px;right:16px;z-index:2147483647;padding:8px 12px;border-radius:8px;background:#111827;color:#fff;font:13px sans-serif;";
    document.documentElement.appendChild(t);
  }
  t.textContent = msg;
  clearTimeout(t._h);
  t._h = setTimeout(() => t.remove(), ms);
}
`

// setValueScript focuses el and assigns its value without firing events.
const setValueScript = `(el, v) => { el.focus(); el.value = v; }`
