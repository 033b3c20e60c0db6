package browser

// extractScript walks the rendered DOM and returns the structured snapshot
// payload. Selector generation priority: #id, then tag[name], then a bounded
// nth-child path. Label resolution order: label[for], enclosing label,
// aria-label, placeholder, title, element text.
const extractScript = `(() => {
	const CAPTURE = 'input, select, textarea, button, a[href], form, table, ul, ol, nav, main, header, [role]';
	const nodes = Array.from(document.querySelectorAll(CAPTURE));
	const indexOf = new Map();
	nodes.forEach((el, i) => indexOf.set(el, i));

	const isVisible = (el) => {
		const style = window.getComputedStyle(el);
		if (style.display === 'none' || style.visibility === 'hidden') return false;
		const rect = el.getBoundingClientRect();
		return rect.width > 0 || rect.height > 0;
	};

	const cssSelector = (el) => {
		if (el.id) return '#' + el.id;
		const tag = el.tagName.toLowerCase();
		const name = el.getAttribute('name');
		if (name) return tag + '[name="' + name + '"]';
		let path = [];
		let current = el;
		while (current.parentElement && path.length < 5) {
			let part = current.tagName.toLowerCase();
			const siblings = Array.from(current.parentElement.children).filter(c => c.tagName === current.tagName);
			if (siblings.length > 1) {
				part += ':nth-child(' + (Array.from(current.parentElement.children).indexOf(current) + 1) + ')';
			}
			path.unshift(part);
			current = current.parentElement;
		}
		return path.join(' > ');
	};

	const labelFor = (el) => {
		if (el.id) {
			const label = document.querySelector('label[for="' + el.id + '"]');
			if (label && label.textContent.trim()) return label.textContent.trim().slice(0, 50);
		}
		const enclosing = el.closest('label');
		if (enclosing && enclosing.textContent.trim()) return enclosing.textContent.trim().slice(0, 50);
		const aria = el.getAttribute('aria-label');
		if (aria) return aria.slice(0, 50);
		if (el.placeholder) return el.placeholder.slice(0, 50);
		if (el.title) return el.title.slice(0, 50);
		const tag = el.tagName.toLowerCase();
		if (tag !== 'input' && tag !== 'select' && el.innerText && el.innerText.trim()) {
			return el.innerText.trim().slice(0, 50);
		}
		return '';
	};

	const nearestCaptured = (el) => {
		let parent = el.parentElement;
		while (parent) {
			if (indexOf.has(parent)) return indexOf.get(parent);
			parent = parent.parentElement;
		}
		return -1;
	};

	const depthOf = (el) => {
		let depth = 0;
		let current = el;
		while (current && current !== document.body) {
			depth++;
			current = current.parentElement;
		}
		return depth;
	};

	const ATTRS = ['id', 'name', 'class', 'type', 'placeholder', 'value', 'href', 'title', 'alt', 'action', 'required'];
	const elements = nodes.map((el, i) => {
		const tag = el.tagName.toLowerCase();
		const attributes = {};
		for (const attr of ATTRS) {
			const value = el.getAttribute(attr);
			if (value !== null) attributes[attr] = value;
		}
		let text = '';
		if (tag !== 'input' && tag !== 'select') {
			text = (el.innerText || '').trim().slice(0, 200);
		}
		let html = '';
		if (tag === 'table' || tag === 'ul' || tag === 'ol') {
			html = el.outerHTML.slice(0, 20000);
		} else if (tag === 'select') {
			html = el.outerHTML.slice(0, 5000);
		}
		return {
			index: i,
			tag: tag,
			attributes: attributes,
			text: text,
			role: el.getAttribute('role') || '',
			visible: isVisible(el),
			depth: depthOf(el),
			parent: nearestCaptured(el),
			selector: cssSelector(el),
			label: labelFor(el),
			html: html
		};
	});

	return {
		url: window.location.href,
		title: document.title,
		body_text: (document.body ? document.body.innerText : '').slice(0, 4000),
		elements: elements
	};
})()`
