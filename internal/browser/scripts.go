package browser

import (
	"encoding/json"
	"fmt"
)

// probeFn snapshots an element into the Probe shape. The ancestor check
// treats an opacity-0 or zero-height clipping ancestor as hidden, which is
// how the client collapses panels.
const probeFn = `
const __probe = (el, index) => {
	const s = getComputedStyle(el);
	const r = el.getBoundingClientRect();
	let parent = -1;
	let hidden = false;
	for (let a = el.parentElement; a; a = a.parentElement) {
		if (parent < 0 && index && index.has(a)) parent = index.get(a);
		const as = getComputedStyle(a);
		if (as.display === 'none' || as.visibility === 'hidden' || parseFloat(as.opacity) === 0) hidden = true;
		if (as.overflowY !== 'visible' && a.getBoundingClientRect().height === 0) hidden = true;
	}
	return {
		text: el.textContent || '',
		width: r.width,
		height: r.height,
		opacity: parseFloat(s.opacity),
		display: s.display,
		visibility: s.visibility,
		ancestorHidden: hidden,
		parent: parent,
	};
};
const __norm = (t) => (t || '').replace(/\s+/g, ' ').trim().toLowerCase();
`

// jsString encodes s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// probeScript collects every element matching selector whose text contains
// fragment. The lower-case filter only narrows the set; matching is decided
// by Matches.
func probeScript(selector, fragment string) string {
	return fmt.Sprintf(`(function(selector, fragment) {
%s
	const needle = __norm(fragment);
	const els = Array.from(document.querySelectorAll(selector))
		.filter(el => needle === '' || __norm(el.textContent).includes(needle));
	const index = new Map(els.map((el, i) => [el, i]));
	return els.map(el => __probe(el, index));
})(%s, %s)`, probeFn, jsString(selector), jsString(fragment))
}

// sectionResult is a heading and the controls grouped under it.
type sectionResult struct {
	Heading *Probe  `json:"heading"`
	Buttons []Probe `json:"buttons"`
}

// sectionScript finds the first leaf element whose whole text is heading and
// probes the buttons of the nearest ancestor that has any.
func sectionScript(heading string) string {
	return fmt.Sprintf(`(function(heading) {
%s
	const want = __norm(heading);
	const h = Array.from(document.querySelectorAll('body *'))
		.find(el => el.children.length === 0 && __norm(el.textContent) === want);
	if (!h) return {heading: null, buttons: []};
	let section = h.parentElement;
	while (section && section !== document.body && !section.querySelector('button')) {
		section = section.parentElement;
	}
	const buttons = section && section !== document.body ? Array.from(section.querySelectorAll('button')) : [];
	const index = new Map(buttons.map((el, i) => [el, i]));
	return {heading: __probe(h), buttons: buttons.map(el => __probe(el, index))};
})(%s)`, probeFn, jsString(heading))
}

// panelResult is a collapsible panel: its activatable header and the content
// it toggles.
type panelResult struct {
	Header  *Probe `json:"header"`
	Content *Probe `json:"content"`
	Clicked bool   `json:"clicked"`
}

// panelScript locates the panel whose header text is exactly title. The
// header is the nearest button around the title, else the title itself;
// the content is the first following sibling found walking up. With click
// set, the header is activated after probing.
func panelScript(title string, click bool) string {
	return fmt.Sprintf(`(function(title, click) {
%s
	const want = __norm(title);
	const t = Array.from(document.querySelectorAll('body *'))
		.find(el => el.children.length === 0 && __norm(el.textContent) === want);
	if (!t) return {header: null, content: null, clicked: false};
	const header = t.closest('button') || t;
	let content = null;
	for (let a = header, depth = 0; a && a !== document.body && depth < 3; a = a.parentElement, depth++) {
		if (a.nextElementSibling) { content = a.nextElementSibling; break; }
	}
	if (click) header.click();
	return {header: __probe(header), content: content ? __probe(content) : null, clicked: click};
})(%s, %t)`, probeFn, jsString(title), click)
}

type readResult struct {
	Found bool   `json:"found"`
	Value string `json:"value"`
}

func storageReadScript(key string) string {
	return fmt.Sprintf(`(function(key) {
	const v = window.localStorage.getItem(key);
	return v === null ? {found: false, value: ''} : {found: true, value: v};
})(%s)`, jsString(key))
}

func storageWriteScript(key, value string) string {
	return fmt.Sprintf(`window.localStorage.setItem(%s, %s)`, jsString(key), jsString(value))
}

const storageClearScript = `window.localStorage.clear()`
